package logic

import (
	"testing"
	"time"
)

const tickPeriod = 5 * time.Millisecond

func testSettings() Settings {
	return Settings{
		GoalWeight:             40,
		Offset:                 2,
		MaxOffset:              5,
		Momentary:              true,
		AutoTare:               true,
		TargetTime:             30 * time.Second,
		MinShotDuration:        3 * time.Second,
		MaxShotDuration:        60 * time.Second,
		DripDelay:              3 * time.Second,
		ReedDelay:              time.Second,
		PulseDuration:          300 * time.Millisecond,
		MinWeightForPrediction: 10,
	}
}

func connectedIn(now time.Time, raw bool) Input {
	return Input{Now: now, RawSwitch: raw, ScaleConnected: true}
}

func disconnectedIn(now time.Time, raw bool) Input {
	return Input{Now: now, RawSwitch: raw}
}

// toggleSwitch plays a momentary press and the full release window.
// It returns the result of the tick that registered the release and
// the time of that tick.
func toggleSwitch(t *testing.T, e *Engine, now time.Time, in func(time.Time, bool) Input) (Result, time.Time) {
	t.Helper()
	e.Tick(in(now, true))
	var res Result
	for i := 0; i < DebounceWindow; i++ {
		now = now.Add(tickPeriod)
		res = e.Tick(in(now, false))
	}
	return res, now
}

func findEvent(res Result, typ EventType) (Event, bool) {
	for _, ev := range res.Events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return Event{}, false
}

func findEffect(res Result, kind EffectKind) (Effect, bool) {
	for _, eff := range res.Effects {
		if eff.Kind == kind {
			return eff, true
		}
	}
	return Effect{}, false
}

func hasEffect(res Result, kind EffectKind) bool {
	_, ok := findEffect(res, kind)
	return ok
}

func TestToggleStartsShot(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())

	res, _ := toggleSwitch(t, e, base, connectedIn)

	ev, ok := findEvent(res, EventShotStarted)
	if !ok {
		t.Fatal("expected a shot-started event on release")
	}
	if ev.TimeMode {
		t.Error("connected shot should not be in time mode")
	}
	if !e.Brewing() {
		t.Error("engine should be brewing")
	}
	for _, kind := range []EffectKind{EffectResetTimer, EffectTare, EffectStartTimer} {
		if !hasEffect(res, kind) {
			t.Errorf("missing %s effect at shot start", kind)
		}
	}
}

func TestToggleStartSkipsTareWhenDisabled(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := testSettings()
	s.AutoTare = false
	e := NewEngine(s)

	res, _ := toggleSwitch(t, e, base, connectedIn)

	if hasEffect(res, EffectTare) {
		t.Error("tare requested with auto-tare disabled")
	}
	if !hasEffect(res, EffectStartTimer) {
		t.Error("missing start-timer effect")
	}
}

func TestToggleStopsShotByButton(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())
	_, now := toggleSwitch(t, e, base, connectedIn)

	res, _ := toggleSwitch(t, e, now.Add(5*time.Second), connectedIn)

	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected a shot-ended event")
	}
	if ev.Reason != EndButton {
		t.Errorf("expected reason %s, got %s", EndButton, ev.Reason)
	}
	if ev.Duration < 5*time.Second {
		t.Errorf("expected duration >= 5s, got %v", ev.Duration)
	}
	if e.Brewing() {
		t.Error("engine still brewing after stop")
	}
	if !hasEffect(res, EffectStopTimer) {
		t.Error("missing stop-timer effect")
	}
	// A manual stop means the user already worked the machine's switch:
	// no trigger output.
	if hasEffect(res, EffectPulseTrigger) || hasEffect(res, EffectSetTrigger) {
		t.Error("button stop must not drive the trigger")
	}
}

func TestReedPressStartsImmediately(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := testSettings()
	s.ReedSwitch = true
	e := NewEngine(s)

	res := e.Tick(connectedIn(base, true))

	if _, ok := findEvent(res, EventShotStarted); !ok {
		t.Fatal("reed contact close should start the shot on the same tick")
	}
	if !e.Brewing() {
		t.Error("engine should be brewing")
	}
}

func TestReedSuppressionAfterShot(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := testSettings()
	s.ReedSwitch = true
	e := NewEngine(s)

	// Shot starts on contact close; without a scale it stops at the
	// configured target time.
	e.Tick(disconnectedIn(base, true))
	res := e.Tick(disconnectedIn(base.Add(30*time.Second), true))
	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected target-time stop")
	}
	if ev.Reason != EndTime {
		t.Fatalf("expected reason %s, got %s", EndTime, ev.Reason)
	}

	// The contact bounces while the brew circuit de-energizes. Inside
	// the suppression window a close must not start a new shot.
	res = e.Tick(disconnectedIn(base.Add(30*time.Second+500*time.Millisecond), true))
	if _, ok := findEvent(res, EventShotStarted); ok {
		t.Error("suppressed reed close started a shot")
	}
	if e.Brewing() {
		t.Error("engine brewing inside suppression window")
	}

	// Past the window, a close is a genuine new shot.
	res = e.Tick(disconnectedIn(base.Add(31*time.Second+500*time.Millisecond), true))
	if _, ok := findEvent(res, EventShotStarted); !ok {
		t.Error("reed close after suppression window should start a shot")
	}
}

func TestMaxDurationStop(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())
	_, s0 := toggleSwitch(t, e, base, connectedIn)

	res := e.Tick(connectedIn(s0.Add(60*time.Second+tickPeriod), false))

	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected max-duration stop")
	}
	if ev.Reason != EndTime {
		t.Errorf("expected reason %s, got %s", EndTime, ev.Reason)
	}
	if ev.Duration != 60*time.Second+tickPeriod {
		t.Errorf("expected duration 60.005s, got %v", ev.Duration)
	}
	eff, ok := findEffect(res, EffectPulseTrigger)
	if !ok {
		t.Fatal("expected a trigger pulse to stop the machine")
	}
	if eff.Duration != 300*time.Millisecond {
		t.Errorf("expected 300ms pulse, got %v", eff.Duration)
	}
}

func TestTargetTimeStopWhenDisconnected(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())
	res, s0 := toggleSwitch(t, e, base, disconnectedIn)

	ev, ok := findEvent(res, EventShotStarted)
	if !ok {
		t.Fatal("expected shot start")
	}
	if !ev.TimeMode {
		t.Error("disconnected shot should run in time mode")
	}
	if hasEffect(res, EffectStartTimer) {
		t.Error("scale timer effect requested without a scale")
	}

	res = e.Tick(disconnectedIn(s0.Add(29*time.Second), false))
	if _, ok := findEvent(res, EventShotEnded); ok {
		t.Fatal("stopped before target time")
	}

	res = e.Tick(disconnectedIn(s0.Add(30*time.Second), false))
	ev, ok = findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected target-time stop")
	}
	if ev.Reason != EndTime {
		t.Errorf("expected reason %s, got %s", EndTime, ev.Reason)
	}
	if !hasEffect(res, EffectPulseTrigger) {
		t.Error("expected a trigger pulse at target time")
	}
}

func TestByTimeOnlyIgnoresScaleForStopping(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := testSettings()
	s.ByTimeOnly = true
	e := NewEngine(s)
	_, s0 := toggleSwitch(t, e, base, connectedIn)

	res := e.Tick(connectedIn(s0.Add(30*time.Second), false))
	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected target-time stop despite connected scale")
	}
	if ev.Reason != EndTime {
		t.Errorf("expected reason %s, got %s", EndTime, ev.Reason)
	}
	if !ev.TimeMode {
		t.Error("expected time mode")
	}
}

func TestWeightStop(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())
	_, s0 := toggleSwitch(t, e, base, connectedIn)

	// Steady flow of 2 g/s: w = 2t, one reading per second.
	for i := 0; i < TrendWindow; i++ {
		sec := 5 + i
		w := 2.0 * float64(sec)
		in := connectedIn(s0.Add(time.Duration(sec)*time.Second), false)
		in.Weight = &w
		res := e.Tick(in)
		if _, ok := findEvent(res, EventShotEnded); ok {
			t.Fatalf("stopped early at t=%ds", sec)
		}
	}

	// Goal 40g with 2g offset: the line crosses 38g at t=19s.
	if e.ExpectedEnd() != 19*time.Second {
		t.Fatalf("expected predicted end 19s, got %v", e.ExpectedEnd())
	}

	res := e.Tick(connectedIn(s0.Add(19*time.Second), false))
	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected weight stop at predicted end")
	}
	if ev.Reason != EndWeight {
		t.Errorf("expected reason %s, got %s", EndWeight, ev.Reason)
	}
	if ev.FinalWeight != 28 {
		t.Errorf("expected final weight 28g, got %v", ev.FinalWeight)
	}
	if !hasEffect(res, EffectPulseTrigger) {
		t.Error("expected a trigger pulse on weight stop")
	}
}

func TestWeightStopRespectsMinimumDuration(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())
	_, s0 := toggleSwitch(t, e, base, connectedIn)

	// A gusher: 40 g/s predicts an end well before the minimum shot
	// duration. The stop must wait for the minimum.
	for i := 1; i <= TrendWindow; i++ {
		d := time.Duration(i) * 100 * time.Millisecond
		w := 40.0 * d.Seconds()
		in := connectedIn(s0.Add(d), false)
		in.Weight = &w
		res := e.Tick(in)
		if _, ok := findEvent(res, EventShotEnded); ok {
			t.Fatalf("stopped before minimum duration at %v", d)
		}
	}
	if e.ExpectedEnd() >= e.Settings.MinShotDuration {
		t.Fatalf("test wants a prediction below the minimum, got %v", e.ExpectedEnd())
	}
	if !e.Brewing() {
		t.Fatal("shot ended early")
	}

	res := e.Tick(connectedIn(s0.Add(3*time.Second+tickPeriod), false))
	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected weight stop after minimum duration")
	}
	if ev.Reason != EndWeight {
		t.Errorf("expected reason %s, got %s", EndWeight, ev.Reason)
	}
}

func TestDisconnectAbortsShot(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())
	_, s0 := toggleSwitch(t, e, base, connectedIn)

	w := 20.0
	in := connectedIn(s0.Add(5*time.Second), false)
	in.Weight = &w
	e.Tick(in)

	// The link drops mid-shot: the abort happens on the same tick.
	res := e.Tick(disconnectedIn(s0.Add(10*time.Second), false))
	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected abort on disconnect")
	}
	if ev.Reason != EndDisconnect {
		t.Errorf("expected reason %s, got %s", EndDisconnect, ev.Reason)
	}
	if ev.TimeMode {
		t.Error("aborted shot was brewing by weight, not by time")
	}
	if e.Brewing() {
		t.Error("still brewing after disconnect abort")
	}
	if e.Weight() != 0 {
		t.Errorf("weight not zeroed on disconnect: %v", e.Weight())
	}
	// Disconnect is not a weight or time stop; the machine keeps
	// running until the user intervenes.
	if hasEffect(res, EffectPulseTrigger) {
		t.Error("disconnect abort must not pulse the trigger")
	}
}

func TestDisconnectFallsBackToTimeWhenConfigured(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := testSettings()
	s.ByTimeOnly = true
	e := NewEngine(s)
	_, s0 := toggleSwitch(t, e, base, connectedIn)

	res := e.Tick(disconnectedIn(s0.Add(10*time.Second), false))
	if _, ok := findEvent(res, EventShotEnded); ok {
		t.Fatal("time-only shot aborted on disconnect")
	}
	if !e.Brewing() {
		t.Fatal("shot should continue by time")
	}

	res = e.Tick(disconnectedIn(s0.Add(30*time.Second), false))
	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected target-time stop")
	}
	if ev.Reason != EndTime {
		t.Errorf("expected reason %s, got %s", EndTime, ev.Reason)
	}
}

func TestConnectionEffects(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())

	res := e.Tick(disconnectedIn(base, false))
	if !hasEffect(res, EffectConnectScale) {
		t.Error("expected a connect request while disconnected")
	}
	if !hasEffect(res, EffectAdvanceLink) {
		t.Error("expected a link advance while disconnected")
	}
	if e.Link() != Disconnected {
		t.Errorf("expected %s, got %s", Disconnected, e.Link())
	}

	res = e.Tick(Input{Now: base.Add(tickPeriod), ScaleConnecting: true})
	if hasEffect(res, EffectConnectScale) {
		t.Error("connect re-requested while an attempt is in flight")
	}
	if !hasEffect(res, EffectAdvanceLink) {
		t.Error("expected a link advance while connecting")
	}
	if e.Link() != Connecting {
		t.Errorf("expected %s, got %s", Connecting, e.Link())
	}

	res = e.Tick(connectedIn(base.Add(2*tickPeriod), false))
	if hasEffect(res, EffectConnectScale) || hasEffect(res, EffectAdvanceLink) {
		t.Error("link effects emitted while connected")
	}
	if e.Link() != Connected {
		t.Errorf("expected %s, got %s", Connected, e.Link())
	}
}

func TestHeartbeatEffect(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())

	in := connectedIn(base, false)
	in.HeartbeatDue = true
	res := e.Tick(in)
	if !hasEffect(res, EffectHeartbeat) {
		t.Error("expected heartbeat effect when due")
	}

	res = e.Tick(connectedIn(base.Add(tickPeriod), false))
	if hasEffect(res, EffectHeartbeat) {
		t.Error("heartbeat emitted when not due")
	}
}

func TestLatchingSwitchTakesOverShot(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := testSettings()
	s.Momentary = false
	e := NewEngine(s)
	_, s0 := toggleSwitch(t, e, base, connectedIn)

	// The user holds the switch past the minimum duration: the stop
	// output latches high so the engine owns the rest of the shot.
	e.Tick(connectedIn(s0.Add(5*time.Second), true))
	res := e.Tick(connectedIn(s0.Add(5*time.Second+tickPeriod), true))
	eff, ok := findEffect(res, EffectSetTrigger)
	if !ok {
		t.Fatal("expected the trigger to latch high")
	}
	if !eff.Level {
		t.Error("latch should drive the trigger high")
	}
	if !hasEffect(res, EffectTare) {
		t.Error("expected a tare on latch")
	}

	// Releasing the switch no longer stops the shot.
	now := s0.Add(6 * time.Second)
	for i := 0; i < DebounceWindow; i++ {
		now = now.Add(tickPeriod)
		res = e.Tick(connectedIn(now, false))
	}
	if !e.Brewing() {
		t.Fatal("latched shot stopped on switch release")
	}

	// The max-duration stop releases the latch.
	res = e.Tick(connectedIn(s0.Add(60*time.Second+tickPeriod), false))
	ev, ok := findEvent(res, EventShotEnded)
	if !ok {
		t.Fatal("expected max-duration stop")
	}
	if ev.Reason != EndTime {
		t.Errorf("expected reason %s, got %s", EndTime, ev.Reason)
	}
	eff, ok = findEffect(res, EffectSetTrigger)
	if !ok {
		t.Fatal("expected the trigger to unlatch")
	}
	if eff.Level {
		t.Error("stop should drive the trigger low")
	}
}

func TestLEDColors(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	e := NewEngine(testSettings())
	res := e.Tick(disconnectedIn(base, false))
	if res.LED != ColorRed {
		t.Errorf("disconnected idle: expected %s, got %s", ColorRed, res.LED)
	}

	res = e.Tick(Input{Now: base.Add(tickPeriod), ScaleConnecting: true})
	if res.LED != ColorYellow {
		t.Errorf("connecting: expected %s, got %s", ColorYellow, res.LED)
	}

	res = e.Tick(connectedIn(base.Add(2*tickPeriod), false))
	if res.LED != ColorGreen {
		t.Errorf("connected idle: expected %s, got %s", ColorGreen, res.LED)
	}

	// Brewing blinks on whole seconds: green on even, blue on odd.
	_, s0 := toggleSwitch(t, e, base.Add(time.Second), connectedIn)
	even := s0.Add(10 * time.Second).Truncate(2 * time.Second)
	res = e.Tick(connectedIn(even, false))
	if res.LED != ColorGreen {
		t.Errorf("brewing even second: expected %s, got %s", ColorGreen, res.LED)
	}
	res = e.Tick(connectedIn(even.Add(time.Second), false))
	if res.LED != ColorBlue {
		t.Errorf("brewing odd second: expected %s, got %s", ColorBlue, res.LED)
	}
}

func TestTimeOnlyReporting(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(testSettings())

	if !e.TimeOnly() {
		t.Error("disconnected engine should report time-only")
	}
	e.Tick(connectedIn(base, false))
	if e.TimeOnly() {
		t.Error("connected engine should report weight mode")
	}

	e.Settings.ByTimeOnly = true
	if !e.TimeOnly() {
		t.Error("configured time-only must win over a connected scale")
	}
}
