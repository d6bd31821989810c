package mqtt

import (
	"encoding/json"
	"strings"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "glyphnode"

// Command names accepted under {prefix}/cmd/.
const (
	CmdCSV             = "csv"
	CmdCharging        = "charging"
	CmdChargingDismiss = "charging-dismiss"
	CmdVolume          = "volume"
	CmdVolumeDismiss   = "volume-dismiss"
	CmdCall            = "call"
	CmdCallStop        = "call-stop"
	CmdEssential       = "essential"
	CmdEssentialStop   = "essential-stop"
	CmdMusic           = "music"
	CmdOverride        = "override"
)

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

func (t Topics) root() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Commands is the wildcard subscription for every command.
func (t Topics) Commands() string { return t.root() + "/cmd/+" }

// Command returns the topic of a single command.
func (t Topics) Command(name string) string { return t.root() + "/cmd/" + name }

// Reply returns the topic outcomes of a command are published on.
func (t Topics) Reply(name string) string { return t.root() + "/reply/" + name }

// Event returns the topic of an event type.
func (t Topics) Event(kind string) string { return t.root() + "/events/" + kind }

// Status is the retained arbitration snapshot topic.
func (t Topics) Status() string { return t.root() + "/status" }

// Availability is the retained online/offline topic.
func (t Topics) Availability() string { return t.root() + "/availability" }

// CommandName extracts the command from a command topic.
func (t Topics) CommandName(topic string) (string, bool) {
	name, ok := strings.CutPrefix(topic, t.root()+"/cmd/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// CSVCommand plays a scripted animation.
type CSVCommand struct {
	Name string `json:"name"`
	Wait bool   `json:"wait,omitempty"`
}

// ProgressCommand shows a progress bar.
type ProgressCommand struct {
	Level int  `json:"level"`
	Wait  bool `json:"wait,omitempty"`
}

// CallCommand starts the call loop.
type CallCommand struct {
	Name string `json:"name"`
}

// MusicCommand flashes one band.
type MusicCommand struct {
	Band string `json:"band"`
}

// OverrideCommand takes or releases every LED.
type OverrideCommand struct {
	Active bool `json:"active"`
}

// Reply reports the result of a command.
type Reply struct {
	Command   string `json:"command"`
	Outcome   string `json:"outcome,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Marshal serializes the reply to JSON.
func (r Reply) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// decode unmarshals a command payload. An empty payload leaves v untouched.
func decode(payload []byte, v any) error {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
