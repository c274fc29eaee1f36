// Package logic contains the pure brew-control core for the shot-stopper
// daemon: the shot state machine, switch arbiter, weight trend predictor,
// offset auto-calibrator and scale connection manager.
// This package has NO external dependencies (no GPIO, MQTT, OS, or
// time.Sleep). Time is always injectable via time.Time parameters; the
// engine is a step function over explicit owned state.
package logic

import "time"

// Compile-time constants of the control core (not configurable).
const (
	// MaxSamples caps the per-shot weight trajectory. Appends stop
	// silently once the cap is reached; they never overwrite.
	MaxSamples = 1000

	// TrendWindow is the number of trailing trajectory samples the
	// end-time fit uses.
	TrendWindow = 10

	// DebounceWindow is the number of raw switch samples held by the
	// arbiter ring.
	DebounceWindow = 31
)

// EndReason records why a shot stopped. It is meaningful only in the tick
// a shot transitions to not-brewing.
type EndReason string

const (
	EndUndefined  EndReason = "undefined"
	EndButton     EndReason = "button"
	EndWeight     EndReason = "weight"
	EndTime       EndReason = "time"
	EndDisconnect EndReason = "disconnect"
)

// ConnState is the tri-state scale link status. It is only ever advanced
// by the engine's connection step, never set directly by shot handling.
type ConnState string

const (
	Disconnected ConnState = "DISCONNECTED"
	Connecting   ConnState = "CONNECTING"
	Connected    ConnState = "CONNECTED"
)

// Color is the status indicator the engine asks the LED driver to show.
// The engine decides the color; driving the hardware is someone else's job.
type Color string

const (
	ColorOff    Color = "OFF"
	ColorRed    Color = "RED"
	ColorGreen  Color = "GREEN"
	ColorBlue   Color = "BLUE"
	ColorYellow Color = "YELLOW"
)

// Settings holds the live brew parameters. They are owned by the control
// loop; remote writes reach them only through the mailbox drain.
type Settings struct {
	GoalWeight float64 // grams
	Offset     float64 // grams subtracted from the goal, learned per shot
	MaxOffset  float64 // grams; larger per-shot errors are discarded

	Momentary  bool // switch must be pulsed to stop, not held
	ReedSwitch bool // brew trigger is a reed contact
	AutoTare   bool // tare the scale when a shot starts/latches
	ByTimeOnly bool // configured: always brew by time, even with a scale

	TargetTime      time.Duration // stop point when brewing by time
	MinShotDuration time.Duration
	MaxShotDuration time.Duration
	DripDelay       time.Duration // settling time before the calibrator fires
	ReedDelay       time.Duration // reed false-trigger suppression after a shot
	PulseDuration   time.Duration // stop-trigger pulse width (momentary)

	MinWeightForPrediction float64 // grams; below this the fit is skipped
}

// Input carries one tick's worth of external observations into the engine.
// The caller polls the hardware and the scale collaborator; the engine
// never touches either directly.
type Input struct {
	Now time.Time

	// RawSwitch is the logical switch level for this tick, already
	// inverted from the active-low line: true = contact closed.
	RawSwitch bool

	ScaleConnected  bool
	ScaleConnecting bool
	HeartbeatDue    bool

	// Weight is a fresh scale reading received this tick, nil if none.
	Weight *float64
}

// EffectKind tags a side-effect request returned by Tick. The control
// loop executes effects in order against the real collaborators.
type EffectKind string

const (
	EffectConnectScale  EffectKind = "connect_scale" // begin a connection attempt
	EffectAdvanceLink   EffectKind = "advance_link"  // step the link state machine
	EffectHeartbeat     EffectKind = "heartbeat"
	EffectTare          EffectKind = "tare"
	EffectResetTimer    EffectKind = "reset_timer"
	EffectStartTimer    EffectKind = "start_timer"
	EffectStopTimer     EffectKind = "stop_timer"
	EffectSetTrigger    EffectKind = "set_trigger"   // hold the stop output at Level
	EffectPulseTrigger  EffectKind = "pulse_trigger" // pulse the stop output for Duration
	EffectPersistOffset EffectKind = "persist_offset"
)

// Effect is a tagged side-effect request. Only the fields relevant to the
// kind are set.
type Effect struct {
	Kind     EffectKind
	Level    bool
	Duration time.Duration
	Value    float64
}

// EventType classifies events emitted for telemetry and logging.
type EventType string

const (
	EventShotStarted    EventType = "SHOT_STARTED"
	EventShotEnded      EventType = "SHOT_ENDED"
	EventOffsetAdjusted EventType = "OFFSET_ADJUSTED"
	EventOffsetRejected EventType = "OFFSET_REJECTED"
)

// Event is a state transition to be published.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Reason      EndReason     // shot-ended only
	Duration    time.Duration // shot-ended only
	FinalWeight float64       // grams, shot-ended and offset events
	Offset      float64       // grams, offset events: the offset now in force
	TimeMode    bool          // whether the shot ran in time-only mode
}

// Result is everything one tick produced.
type Result struct {
	Effects []Effect
	Events  []Event
	LED     Color
}
