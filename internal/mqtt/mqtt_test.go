package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/shot-stopper/internal/logic"
)

func TestFormatShotPayloadEnded(t *testing.T) {
	event := logic.Event{
		Timestamp:   time.Date(2026, 1, 1, 12, 30, 45, 0, time.UTC),
		Type:        logic.EventShotEnded,
		Reason:      logic.EndWeight,
		Duration:    25*time.Second + 500*time.Millisecond,
		FinalWeight: 38.2,
		TimeMode:    false,
	}

	payload, err := FormatShotPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var parsed ShotPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Shot.Timestamp != "2026-01-01T12:30:45Z" {
		t.Errorf("timestamp: got %q", parsed.Shot.Timestamp)
	}
	if parsed.Shot.Event != "SHOT_ENDED" {
		t.Errorf("event: got %q", parsed.Shot.Event)
	}
	if parsed.Shot.Reason != "weight" {
		t.Errorf("reason: got %q", parsed.Shot.Reason)
	}
	if parsed.Shot.DurationS != 25.5 {
		t.Errorf("duration_s: got %v", parsed.Shot.DurationS)
	}
	if parsed.Shot.FinalWeight != 38.2 {
		t.Errorf("final_weight_g: got %v", parsed.Shot.FinalWeight)
	}
	if parsed.Shot.TimeMode {
		t.Error("time_mode: expected false")
	}
}

func TestFormatShotPayloadStartedOmitsReason(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 1, 1, 12, 30, 45, 0, time.UTC),
		Type:      logic.EventShotStarted,
		Reason:    logic.EndUndefined,
		TimeMode:  true,
	}

	payload, err := FormatShotPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["shot"]["reason"]; ok {
		t.Error("shot-started payload should omit reason")
	}
	if raw["shot"]["time_mode"] != true {
		t.Error("time_mode: expected true")
	}
}

func TestFormatShotPayloadOffsetEvent(t *testing.T) {
	event := logic.Event{
		Timestamp:   time.Date(2026, 1, 1, 12, 31, 0, 0, time.UTC),
		Type:        logic.EventOffsetAdjusted,
		FinalWeight: 41.5,
		Offset:      3.0,
	}

	payload, err := FormatShotPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var parsed ShotPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Shot.Event != "OFFSET_ADJUSTED" {
		t.Errorf("event: got %q", parsed.Shot.Event)
	}
	if parsed.Shot.Offset != 3.0 {
		t.Errorf("offset_g: got %v", parsed.Shot.Offset)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("event: got %q", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("reason: got %q", parsed.System.Reason)
	}
	if parsed.System.Timestamp != "2026-01-01T12:00:00Z" {
		t.Errorf("timestamp: got %q", parsed.System.Timestamp)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	event := SystemEvent{Event: "STARTUP", RawPayload: raw}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestFakePublisherRecordsEvents(t *testing.T) {
	pub := NewFakePublisher()

	event := logic.Event{
		Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Type:      logic.EventShotEnded,
		Reason:    logic.EndButton,
	}
	if err := pub.PublishShot(event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(pub.Events) != 1 || pub.Events[0].Reason != logic.EndButton {
		t.Errorf("event not recorded: %+v", pub.Events)
	}
	if len(pub.Payloads) != 1 {
		t.Errorf("payload not recorded")
	}

	pub.Reset()
	if len(pub.Events) != 0 {
		t.Error("reset did not clear events")
	}
}
