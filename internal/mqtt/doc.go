// Package mqtt exposes the glyph engine on an MQTT broker.
//
// # Architecture
//
//   - Client: paho connection with auto-reconnect; subscriptions are restored
//     after every reconnect
//   - Bridge: turns command messages into engine calls and forwards event bus
//     events to the broker
//
// # Topic Hierarchy
//
//	{prefix}/cmd/{command}     # JSON command (broker → glyphnode)
//	{prefix}/reply/{command}   # outcome of a command (glyphnode → broker)
//	{prefix}/events/{type}     # animation, admission and override events
//	{prefix}/status            # retained arbitration snapshot
//	{prefix}/availability      # retained "online"/"offline", also the will
//
// Commands are csv, charging, charging-dismiss, volume, volume-dismiss,
// call, call-stop, essential, essential-stop, music and override.
//
// # Debugging with mosquitto
//
// Watch everything the node publishes:
//
//	mosquitto_sub -v -t "glyphnode/#"
//
// Play an animation:
//
//	mosquitto_pub -t glyphnode/cmd/csv -m '{"name":"pulse"}'
//
// Show the charging bar at 40%:
//
//	mosquitto_pub -t glyphnode/cmd/charging -m '{"level":40}'
//
// Take every LED for an external collaborator:
//
//	mosquitto_pub -t glyphnode/cmd/override -m '{"active":true}'
package mqtt
