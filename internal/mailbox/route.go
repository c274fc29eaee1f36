package mailbox

import (
	"fmt"
	"strconv"
	"strings"
)

// Route parses a textual write to a named brew parameter and puts it in
// the matching slot. Field names are the config registry keys. Both the
// MQTT setpoint subscriber and the web parameter handler produce through
// here, so every remote surface gets identical parsing and the same
// last-write-wins semantics.
//
// Range validation happens at drain time against the config registry,
// not here: the producer context must stay cheap and never touch the
// registry.
func Route(box *Box, field, value string) error {
	value = strings.TrimSpace(value)

	switch field {
	case "brew.goal_weight":
		return putFloat(&box.GoalWeight, value)
	case "switch.momentary":
		return putBool(&box.Momentary, value)
	case "switch.reedcontact":
		return putBool(&box.ReedSwitch, value)
	case "scale.auto_tare":
		return putBool(&box.AutoTare, value)
	case "brew.by_time_only":
		return putBool(&box.ByTimeOnly, value)
	case "brew.target_time":
		return putFloat(&box.TargetTime, value)
	case "brew.min_shot_duration":
		return putFloat(&box.MinShotDuration, value)
	case "brew.max_shot_duration":
		return putFloat(&box.MaxShotDuration, value)
	case "brew.drip_delay":
		return putFloat(&box.DripDelay, value)
	default:
		return fmt.Errorf("unknown writable field %q", field)
	}
}

func putFloat(s *Slot[float64], value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %q: %w", value, err)
	}
	s.Put(f)
	return nil
}

func putBool(s *Slot[bool], value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %q: %w", value, err)
	}
	s.Put(b)
	return nil
}
