// Package status provides a thread-safe status tracker for the
// shot-stopper daemon. It is read by HTTP handlers and by the periodic
// MQTT status snapshot.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/shot-stopper/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs     int64
	StatusMs   int64
	Broker     string
	ScaleID    string
	HTTPPort   string
	ConfigPath string
}

// ShotCounts tracks completed shots by end reason since startup.
type ShotCounts struct {
	Button     int
	Weight     int
	Time       int
	Disconnect int
}

// Count increments the bucket for a reason.
func (c *ShotCounts) Count(reason logic.EndReason) {
	switch reason {
	case logic.EndButton:
		c.Button++
	case logic.EndWeight:
		c.Weight++
	case logic.EndTime:
		c.Time++
	case logic.EndDisconnect:
		c.Disconnect++
	}
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Weight     float64
	GoalWeight float64
	Offset     float64
	Brewing    bool
	Elapsed    time.Duration
	Expected   time.Duration
	TimeOnly   bool
	Link       logic.ConnState

	Counts        ShotCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Link:      logic.Disconnected,
			Config:    cfg,
		},
	}
}

// Update sets the live brew state. Called from the control loop.
func (t *Tracker) Update(weight, goal, offset float64, brewing bool, elapsed, expected time.Duration, timeOnly bool, link logic.ConnState) {
	t.mu.Lock()
	t.snap.Weight = weight
	t.snap.GoalWeight = goal
	t.snap.Offset = offset
	t.snap.Brewing = brewing
	t.snap.Elapsed = elapsed
	t.snap.Expected = expected
	t.snap.TimeOnly = timeOnly
	t.snap.Link = link
	t.mu.Unlock()
}

// CountShot records a completed shot.
func (t *Tracker) CountShot(reason logic.EndReason) {
	t.mu.Lock()
	t.snap.Counts.Count(reason)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
