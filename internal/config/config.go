// Package config is the typed, bounded configuration registry for the
// shot-stopper daemon, persisted as a single JSON document. Every key
// has a declared type, a default, and (for numbers) an inclusive range;
// writes outside the range are rejected. The daemon loads the document
// once at startup and saves it whenever a parameter changes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Kind is the declared type of a registry key.
type Kind string

const (
	Bool  Kind = "bool"
	Int   Kind = "int"
	Float Kind = "float"
)

// Def declares one registry key: its type, default, and numeric bounds.
// Min/Max are ignored for Bool.
type Def struct {
	Kind    Kind
	Default any
	Min     float64
	Max     float64
}

// defs is the full registry. Keys and bounds follow the machine's
// original configuration layout.
var defs = map[string]Def{
	"system.log_level": {Kind: Int, Default: 2, Min: 0, Max: 6},

	"switch.momentary":   {Kind: Bool, Default: true},
	"switch.reedcontact": {Kind: Bool, Default: false},

	"scale.auto_tare":                 {Kind: Bool, Default: true},
	"scale.min_weight_for_prediction": {Kind: Float, Default: 10.0, Min: 0.0, Max: 50.0},

	"brew.by_time_only":      {Kind: Bool, Default: false},
	"brew.goal_weight":       {Kind: Float, Default: 40.0, Min: 10.0, Max: 100.0},
	"brew.weight_offset":     {Kind: Float, Default: 1.5, Min: 0.0, Max: 5.0},
	"brew.max_offset":        {Kind: Float, Default: 5.0, Min: 1.0, Max: 10.0},
	"brew.pulse_duration_ms": {Kind: Int, Default: 300, Min: 100, Max: 1000},
	"brew.drip_delay":        {Kind: Float, Default: 3.0, Min: 1.0, Max: 10.0},
	"brew.reed_switch_delay": {Kind: Float, Default: 1.0, Min: 0.1, Max: 5.0},
	"brew.target_time":       {Kind: Int, Default: 30, Min: 3, Max: 60},

	// The firmware derived the shot duration limits from the
	// brew.target_time bounds. They are first-class keys here because
	// the remote surface can set them independently.
	"brew.min_shot_duration": {Kind: Float, Default: 3.0, Min: 1.0, Max: 10.0},
	"brew.max_shot_duration": {Kind: Float, Default: 60.0, Min: 10.0, Max: 120.0},
}

// Store holds the live values behind a mutex. Reads come from the
// control loop and HTTP handlers, writes only from the control loop.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// Load reads the config document at path, overlaying defaults. A
// missing file is not an error: the store starts from defaults and the
// file appears on first save. Unknown keys in the file are dropped,
// out-of-range values fall back to the default.
func Load(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]any, len(defs))}
	for key, def := range defs {
		s.values[key] = def.Default
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	for key, msg := range raw {
		def, ok := defs[key]
		if !ok {
			continue
		}
		v, err := decode(def, msg)
		if err != nil {
			return nil, fmt.Errorf("config key %s: %w", key, err)
		}
		if err := def.check(v); err != nil {
			// Keep the default rather than fail startup.
			continue
		}
		s.values[key] = v
	}

	return s, nil
}

func decode(def Def, msg json.RawMessage) (any, error) {
	switch def.Kind {
	case Bool:
		var b bool
		if err := json.Unmarshal(msg, &b); err != nil {
			return nil, err
		}
		return b, nil
	case Int:
		var i int
		if err := json.Unmarshal(msg, &i); err != nil {
			return nil, err
		}
		return i, nil
	case Float:
		var f float64
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown kind %q", def.Kind)
}

func (d Def) check(v any) error {
	switch d.Kind {
	case Bool:
		return nil
	case Int:
		n := float64(v.(int))
		if n < d.Min || n > d.Max {
			return fmt.Errorf("value %v outside range [%v, %v]", v, d.Min, d.Max)
		}
	case Float:
		n := v.(float64)
		if n < d.Min || n > d.Max {
			return fmt.Errorf("value %v outside range [%v, %v]", v, d.Min, d.Max)
		}
	}
	return nil
}

// Bool returns the value of a bool key. Panics on a wrong key: registry
// keys are compile-time strings, a miss is a programming error.
func (s *Store) Bool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key].(bool)
}

// Int returns the value of an int key.
func (s *Store) Int(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key].(int)
}

// Float returns the value of a float key.
func (s *Store) Float(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key].(float64)
}

// Validate checks a candidate value against a key's declaration
// without storing it.
func Validate(key string, v any) error {
	def, ok := defs[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	v, err := def.coerce(v)
	if err != nil {
		return err
	}
	return def.check(v)
}

// Set validates and stores a new value for key.
func (s *Store) Set(key string, v any) error {
	def, ok := defs[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	v, err := def.coerce(v)
	if err != nil {
		return fmt.Errorf("key %s: %w", key, err)
	}
	if err := def.check(v); err != nil {
		return fmt.Errorf("key %s: %w", key, err)
	}

	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
	return nil
}

// coerce normalizes a candidate value to the key's storage type.
// Floats are accepted for int keys when integral, since JSON numbers
// arrive as float64.
func (d Def) coerce(v any) (any, error) {
	switch d.Kind {
	case Bool:
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("wants bool, got %T", v)
		}
		return v, nil
	case Int:
		switch n := v.(type) {
		case int:
			return n, nil
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("wants int, got %v", n)
			}
			return int(n), nil
		default:
			return nil, fmt.Errorf("wants int, got %T", v)
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("wants float, got %T", v)
		}
	}
	return nil, fmt.Errorf("unknown kind %q", d.Kind)
}

// Save writes the document atomically (temp file + rename) so a crash
// mid-write cannot corrupt the config.
func (s *Store) Save() error {
	data, err := s.Document()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Document returns the current values as the persisted JSON document.
// The web layer serves this verbatim for config download.
func (s *Store) Document() ([]byte, error) {
	s.mu.RLock()
	copied := make(map[string]any, len(s.values))
	for k, v := range s.values {
		copied[k] = v
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(copied, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Keys returns all registry keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Definition returns the declaration for a key.
func Definition(key string) (Def, bool) {
	d, ok := defs[key]
	return d, ok
}

// Value returns the current value of a key as-is.
func (s *Store) Value(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}
