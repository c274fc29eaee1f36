// Package gpio drives the shot-stopper's hardware lines with hardware
// abstraction: the brew-switch input, the stop-trigger output, and the
// RGB status LED. The real implementation uses the Linux GPIO character
// device; the fakes allow testing without hardware.
package gpio

import "github.com/sweeney/shot-stopper/internal/logic"

// Switch reads the brew-switch input.
type Switch interface {
	// Read returns the logical switch level: true = contact closed.
	// The raw line is active-low; implementations invert it.
	Read() (bool, error)

	// Close releases the line.
	Close() error
}

// Trigger drives the stop-trigger output.
type Trigger interface {
	// Set holds the output at the given level.
	Set(on bool) error

	// Close releases the line, leaving the output low.
	Close() error
}

// LED drives the RGB status indicator.
type LED interface {
	// Show displays the given color.
	Show(c logic.Color) error

	// Close releases the lines, leaving the LED off.
	Close() error
}

// Default pin assignments (BCM numbering).
const (
	DefaultPinSwitch  = 21 // mechanical brew switch
	DefaultPinReed    = 18 // reed contact
	DefaultPinTrigger = 26
	DefaultPinRed     = 16
	DefaultPinGreen   = 20
	DefaultPinBlue    = 19
)
