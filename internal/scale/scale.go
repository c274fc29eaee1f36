// Package scale provides the weighing-scale collaborator: the
// capability interface the control engine polls, an MQTT-bridged link
// implementation, and a scripted fake for tests. The scale's own wire
// protocol lives behind the bridge; this package only orchestrates
// connection, liveness and commands.
package scale

// Scale is the capability set the control loop polls every tick. All
// methods are non-blocking; the loop never waits on the link.
type Scale interface {
	// Connected reports whether weight data is flowing.
	Connected() bool

	// Connecting reports whether a connection attempt is in flight.
	Connecting() bool

	// Connect begins a non-blocking connection attempt. Safe to call
	// repeatedly, including after the underlying transport has been
	// torn down; the link is re-created as needed.
	Connect() error

	// Advance steps the connection state machine.
	Advance()

	// HeartbeatDue reports whether a keep-alive should be sent.
	// Missing one lets the peer time the session out silently.
	HeartbeatDue() bool

	// Heartbeat sends a keep-alive.
	Heartbeat() error

	// NewWeightAvailable polls for a fresh reading. It must be called
	// every tick regardless of use, or Weight() goes stale.
	NewWeightAvailable() bool

	// Weight returns the last consumed reading in grams.
	Weight() float64

	// Tare zeroes the scale.
	Tare() error

	// ResetTimer, StartTimer and StopTimer drive the scale's own shot
	// timer display.
	ResetTimer() error
	StartTimer() error
	StopTimer() error

	// Close tears the link down.
	Close() error
}
