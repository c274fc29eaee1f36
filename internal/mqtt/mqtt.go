// Package mqtt is the telemetry and remote-control surface of the
// shot-stopper daemon: it publishes shot and system events, a retained
// status snapshot, and subscribes to per-field setpoint topics whose
// writes land in the control loop's mailbox.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/shot-stopper/internal/logic"
)

// Topics. Setpoint writes arrive on TopicSetPrefix + <config key>.
const (
	TopicShots     = "espresso/shot-stopper/shots"
	TopicSystem    = "espresso/shot-stopper/system"
	TopicStatus    = "espresso/shot-stopper/status"
	TopicSetPrefix = "espresso/shot-stopper/set/"
)

// Publisher publishes daemon output to MQTT.
type Publisher interface {
	// PublishShot sends a shot lifecycle or calibration event.
	// Returns error if publishing fails (should not crash the process).
	PublishShot(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// PublishStatus sends a retained status snapshot.
	PublishStatus(payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ShotPayload is the MQTT message payload for shot events.
type ShotPayload struct {
	Shot ShotPayloadInner `json:"shot"`
}

// ShotPayloadInner contains the shot event details.
type ShotPayloadInner struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"`
	Reason      string  `json:"reason,omitempty"`
	DurationS   float64 `json:"duration_s,omitempty"`
	FinalWeight float64 `json:"final_weight_g,omitempty"`
	Offset      float64 `json:"offset_g,omitempty"`
	TimeMode    bool    `json:"time_mode"`
}

// FormatShotPayload creates the JSON payload for a shot event.
func FormatShotPayload(event logic.Event) ([]byte, error) {
	payload := ShotPayload{
		Shot: ShotPayloadInner{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Event:       string(event.Type),
			Reason:      string(event.Reason),
			DurationS:   event.Duration.Seconds(),
			FinalWeight: event.FinalWeight,
			Offset:      event.Offset,
			TimeMode:    event.TimeMode,
		},
	}
	if event.Type == logic.EventShotStarted {
		payload.Shot.Reason = ""
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message payload for simple system events
// that do not carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full
// status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
