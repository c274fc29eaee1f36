//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"github.com/sweeney/shot-stopper/internal/logic"
)

// RealSwitch reads the brew switch from actual hardware using the
// Linux GPIO character device.
type RealSwitch struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealSwitch requests the switch line as input with pull-up: the
// switch shorts the line to ground, so raw low means pressed.
func NewRealSwitch(pin int) (*RealSwitch, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request switch pin %d: %w", pin, err)
	}

	return &RealSwitch{chip: chip, line: line}, nil
}

// Read returns the logical switch level, inverting the active-low raw
// value: raw 0 = pressed.
func (s *RealSwitch) Read() (bool, error) {
	raw, err := s.line.Value()
	if err != nil {
		return false, fmt.Errorf("read switch pin: %w", err)
	}
	return raw == 0, nil
}

// Close releases the switch line and chip.
func (s *RealSwitch) Close() error {
	var errs []error
	if s.line != nil {
		if err := s.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close switch pin: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealTrigger drives the stop-trigger output line.
type RealTrigger struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealTrigger requests the trigger line as output, initially low.
func NewRealTrigger(pin int) (*RealTrigger, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request trigger pin %d: %w", pin, err)
	}

	return &RealTrigger{chip: chip, line: line}, nil
}

// Set holds the trigger output at the given level.
func (t *RealTrigger) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := t.line.SetValue(v); err != nil {
		return fmt.Errorf("set trigger pin: %w", err)
	}
	return nil
}

// Close drives the trigger low and releases the line. Leaving the
// output high would keep the machine's brew circuit energized.
func (t *RealTrigger) Close() error {
	var errs []error
	if t.line != nil {
		if err := t.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("lower trigger pin: %w", err))
		}
		if err := t.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger pin: %w", err))
		}
	}
	if t.chip != nil {
		if err := t.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealLED drives a common-anode RGB LED on three output lines. Colors
// are binary per channel; the blink cadence comes from the engine.
type RealLED struct {
	chip    *gpiocdev.Chip
	r, g, b *gpiocdev.Line
}

// NewRealLED requests the three LED lines as outputs, initially off.
func NewRealLED(pinR, pinG, pinB int) (*RealLED, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	lines := make([]*gpiocdev.Line, 0, 3)
	request := func(pin int, name string) (*gpiocdev.Line, error) {
		// Common anode: high = off.
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(1))
		if err != nil {
			for _, l := range lines {
				l.Close()
			}
			chip.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", name, pin, err)
		}
		lines = append(lines, line)
		return line, nil
	}

	r, err := request(pinR, "red")
	if err != nil {
		return nil, err
	}
	g, err := request(pinG, "green")
	if err != nil {
		return nil, err
	}
	b, err := request(pinB, "blue")
	if err != nil {
		return nil, err
	}

	return &RealLED{chip: chip, r: r, g: g, b: b}, nil
}

// Show displays the color. Channels are inverted for common anode.
func (l *RealLED) Show(c logic.Color) error {
	var r, g, b int
	switch c {
	case logic.ColorRed:
		r = 1
	case logic.ColorGreen:
		g = 1
	case logic.ColorBlue:
		b = 1
	case logic.ColorYellow:
		r, g = 1, 1
	case logic.ColorOff:
	default:
		return fmt.Errorf("unknown color %q", c)
	}

	if err := l.r.SetValue(1 - r); err != nil {
		return fmt.Errorf("set red: %w", err)
	}
	if err := l.g.SetValue(1 - g); err != nil {
		return fmt.Errorf("set green: %w", err)
	}
	if err := l.b.SetValue(1 - b); err != nil {
		return fmt.Errorf("set blue: %w", err)
	}
	return nil
}

// Close turns the LED off and releases the lines.
func (l *RealLED) Close() error {
	var errs []error
	for name, line := range map[string]*gpiocdev.Line{"red": l.r, "green": l.g, "blue": l.b} {
		if line == nil {
			continue
		}
		if err := line.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("blank %s: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
