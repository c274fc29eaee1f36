package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := s.Float("brew.goal_weight"); got != 40.0 {
		t.Errorf("brew.goal_weight: expected 40, got %v", got)
	}
	if got := s.Float("brew.weight_offset"); got != 1.5 {
		t.Errorf("brew.weight_offset: expected 1.5, got %v", got)
	}
	if !s.Bool("switch.momentary") {
		t.Error("switch.momentary: expected true")
	}
	if s.Bool("brew.by_time_only") {
		t.Error("brew.by_time_only: expected false")
	}
	if got := s.Int("brew.target_time"); got != 30 {
		t.Errorf("brew.target_time: expected 30, got %v", got)
	}
	if got := s.Float("brew.max_shot_duration"); got != 60.0 {
		t.Errorf("brew.max_shot_duration: expected 60, got %v", got)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"brew.goal_weight": 35.5, "system.log_level": 4, "switch.momentary": false}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := s.Float("brew.goal_weight"); got != 35.5 {
		t.Errorf("brew.goal_weight: expected 35.5, got %v", got)
	}
	if got := s.Int("system.log_level"); got != 4 {
		t.Errorf("system.log_level: expected 4, got %v", got)
	}
	if s.Bool("switch.momentary") {
		t.Error("switch.momentary: expected false")
	}
	// Untouched keys keep defaults.
	if got := s.Float("brew.drip_delay"); got != 3.0 {
		t.Errorf("brew.drip_delay: expected 3, got %v", got)
	}
}

func TestLoadDropsUnknownAndOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"brew.bogus": 1, "brew.goal_weight": 500}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := s.Value("brew.bogus"); ok {
		t.Error("unknown key survived load")
	}
	if got := s.Float("brew.goal_weight"); got != 40.0 {
		t.Errorf("out-of-range value should fall back to default, got %v", got)
	}
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestSetEnforcesBounds(t *testing.T) {
	s, _ := Load(filepath.Join(t.TempDir(), "config.json"))

	if err := s.Set("brew.goal_weight", 42.5); err != nil {
		t.Fatalf("in-range set failed: %v", err)
	}
	if got := s.Float("brew.goal_weight"); got != 42.5 {
		t.Errorf("expected 42.5, got %v", got)
	}

	if err := s.Set("brew.goal_weight", 500.0); err == nil {
		t.Error("expected error above max")
	}
	if err := s.Set("brew.goal_weight", 5.0); err == nil {
		t.Error("expected error below min")
	}
	if got := s.Float("brew.goal_weight"); got != 42.5 {
		t.Errorf("rejected set changed the value: %v", got)
	}
}

func TestSetCoercesNumbers(t *testing.T) {
	s, _ := Load(filepath.Join(t.TempDir(), "config.json"))

	// JSON numbers arrive as float64; an integral one fits an int key.
	if err := s.Set("brew.target_time", 45.0); err != nil {
		t.Fatalf("integral float rejected for int key: %v", err)
	}
	if got := s.Int("brew.target_time"); got != 45 {
		t.Errorf("expected 45, got %v", got)
	}
	if err := s.Set("brew.target_time", 45.5); err == nil {
		t.Error("fractional value accepted for int key")
	}

	if err := s.Set("brew.goal_weight", 50); err != nil {
		t.Fatalf("int rejected for float key: %v", err)
	}
	if got := s.Float("brew.goal_weight"); got != 50.0 {
		t.Errorf("expected 50, got %v", got)
	}
}

func TestSetRejectsWrongType(t *testing.T) {
	s, _ := Load(filepath.Join(t.TempDir(), "config.json"))

	if err := s.Set("switch.momentary", 1.0); err == nil {
		t.Error("number accepted for bool key")
	}
	if err := s.Set("brew.goal_weight", "40"); err == nil {
		t.Error("string accepted for float key")
	}
	if err := s.Set("no.such.key", 1.0); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, _ := Load(path)

	if err := s.Set("brew.goal_weight", 42.5); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("brew.by_time_only", true); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.Float("brew.goal_weight"); got != 42.5 {
		t.Errorf("expected 42.5 after round trip, got %v", got)
	}
	if !reloaded.Bool("brew.by_time_only") {
		t.Error("expected by_time_only true after round trip")
	}
	if got := reloaded.Int("brew.target_time"); got != 30 {
		t.Errorf("unset key lost its default: %v", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("brew.goal_weight", 42.5); err != nil {
		t.Errorf("valid value rejected: %v", err)
	}
	if err := Validate("brew.goal_weight", 500.0); err == nil {
		t.Error("out-of-range value accepted")
	}
	if err := Validate("no.such.key", 1.0); err == nil {
		t.Error("unknown key accepted")
	}
}

func TestDocumentListsEveryKey(t *testing.T) {
	s, _ := Load(filepath.Join(t.TempDir(), "config.json"))
	doc, err := s.Document()
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	for _, key := range Keys() {
		if _, ok := parsed[key]; !ok {
			t.Errorf("document missing key %s", key)
		}
	}
	if len(parsed) != len(Keys()) {
		t.Errorf("document has %d keys, registry has %d", len(parsed), len(Keys()))
	}
}
