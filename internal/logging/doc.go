// Package logging provides module loggers with per-module levels.
//
// Records go to stdout when it is attached, to the systemd journal when
// journald is reachable, and always to an in-memory ring buffer that backs
// the log stream endpoint.
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"glyph": "debug",
//			"mqtt":  "warn",
//		},
//	})
//
//	logger := logging.GetLogger("glyph")
//	logger.Info("Animation finished", "name", name, "frames", n)
//
// Loggers obtained before Initialize are cached and switch to the configured
// level when Initialize runs, so package-level loggers are safe.
//
// Modules used by the daemon: main, glyph, tasks, led, resources, api, http,
// mqtt, config, systemd.
package logging
