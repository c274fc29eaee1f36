package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	WeightG       float64     `json:"weight_g"`
	GoalWeightG   float64     `json:"goal_weight_g"`
	OffsetG       float64     `json:"offset_g"`
	Brewing       bool        `json:"brewing"`
	ElapsedS      float64     `json:"elapsed_s"`
	ExpectedS     float64     `json:"expected_s"`
	TimeOnly      bool        `json:"time_only"`
	Scale         ScaleStatus `json:"scale"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"shot_counts"`
	Config        ConfigJSON  `json:"config"`
}

// ScaleStatus reports the scale link state.
type ScaleStatus struct {
	Link string `json:"link"`
	ID   string `json:"id"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of shot counts by end reason.
type CountsJSON struct {
	Button     int `json:"button"`
	Weight     int `json:"weight"`
	Time       int `json:"time"`
	Disconnect int `json:"disconnect"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs     int64  `json:"poll_ms"`
	StatusMs   int64  `json:"status_ms"`
	Broker     string `json:"broker"`
	ScaleID    string `json:"scale_id"`
	HTTPPort   string `json:"http_port"`
	ConfigPath string `json:"config_path"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		WeightG:       round1(snap.Weight),
		GoalWeightG:   round1(snap.GoalWeight),
		OffsetG:       round1(snap.Offset),
		Brewing:       snap.Brewing,
		ElapsedS:      round1(snap.Elapsed.Seconds()),
		ExpectedS:     round1(snap.Expected.Seconds()),
		TimeOnly:      snap.TimeOnly,
		Scale:         ScaleStatus{Link: string(snap.Link), ID: snap.Config.ScaleID},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Button:     snap.Counts.Button,
			Weight:     snap.Counts.Weight,
			Time:       snap.Counts.Time,
			Disconnect: snap.Counts.Disconnect,
		},
		Config: ConfigJSON{
			PollMs:     snap.Config.PollMs,
			StatusMs:   snap.Config.StatusMs,
			Broker:     snap.Config.Broker,
			ScaleID:    snap.Config.ScaleID,
			HTTPPort:   snap.Config.HTTPPort,
			ConfigPath: snap.Config.ConfigPath,
		},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event or
// the retained status snapshot.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
