//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/shot-stopper/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealSwitch is not available on non-Linux platforms.
type RealSwitch struct{}

// NewRealSwitch returns an error on non-Linux platforms.
func NewRealSwitch(pin int) (*RealSwitch, error) { return nil, errUnsupported }

func (s *RealSwitch) Read() (bool, error) { return false, errUnsupported }
func (s *RealSwitch) Close() error        { return nil }

// RealTrigger is not available on non-Linux platforms.
type RealTrigger struct{}

// NewRealTrigger returns an error on non-Linux platforms.
func NewRealTrigger(pin int) (*RealTrigger, error) { return nil, errUnsupported }

func (t *RealTrigger) Set(on bool) error { return errUnsupported }
func (t *RealTrigger) Close() error      { return nil }

// RealLED is not available on non-Linux platforms.
type RealLED struct{}

// NewRealLED returns an error on non-Linux platforms.
func NewRealLED(pinR, pinG, pinB int) (*RealLED, error) { return nil, errUnsupported }

func (l *RealLED) Show(c logic.Color) error { return errUnsupported }
func (l *RealLED) Close() error             { return nil }
