package gpio

import (
	"errors"

	"github.com/sweeney/shot-stopper/internal/logic"
)

// FakeSwitch is a test double that returns scripted switch levels.
type FakeSwitch struct {
	// Samples contains scripted logical levels (true = pressed).
	// Each call to Read() consumes the next sample; when exhausted,
	// the last sample repeats.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSwitch creates a FakeSwitch with the given samples.
func NewFakeSwitch(samples []bool) *FakeSwitch {
	return &FakeSwitch{Samples: samples}
}

// Read returns the next scripted level.
func (f *FakeSwitch) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the switch as closed.
func (f *FakeSwitch) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script.
func (f *FakeSwitch) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeTrigger records stop-trigger levels.
type FakeTrigger struct {
	// Levels records every Set call in order.
	Levels []bool

	Closed   bool
	SetError error
}

// Set appends the level to the record.
func (f *FakeTrigger) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, on)
	return nil
}

// Close marks the trigger as closed.
func (f *FakeTrigger) Close() error {
	f.Closed = true
	return nil
}

// Level returns the most recent level, false if never set.
func (f *FakeTrigger) Level() bool {
	if len(f.Levels) == 0 {
		return false
	}
	return f.Levels[len(f.Levels)-1]
}

// FakeLED records the colors shown.
type FakeLED struct {
	Colors []logic.Color
	Closed bool
}

// Show appends the color to the record.
func (f *FakeLED) Show(c logic.Color) error {
	f.Colors = append(f.Colors, c)
	return nil
}

// Close marks the LED as closed.
func (f *FakeLED) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recent color, ColorOff if never shown.
func (f *FakeLED) Last() logic.Color {
	if len(f.Colors) == 0 {
		return logic.ColorOff
	}
	return f.Colors[len(f.Colors)-1]
}
