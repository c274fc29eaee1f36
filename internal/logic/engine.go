package logic

import "time"

// Engine is the brew-control state machine. All state it owns (shot,
// link state, switch tracking, learned offset) is mutated only from
// Tick, which the control loop calls once per polling period.
type Engine struct {
	// Settings are the live brew parameters. Owned by the control
	// loop; mutated only between ticks (mailbox drain).
	Settings Settings

	shot    Shot
	conn    ConnState
	arbiter Arbiter

	buttonPressed bool // logical press carried across ticks
	buttonLatched bool // stop-trigger held high (non-momentary switches)
	currentWeight float64
}

// NewEngine creates an engine with the given initial settings.
func NewEngine(s Settings) *Engine {
	return &Engine{
		Settings: s,
		shot:     newShot(),
		conn:     Disconnected,
	}
}

// Tick evaluates one control step. The transition rules run in a fixed
// order: link management, weight intake, switch arbitration, the shot
// priority chain, the independent weight-stop check, and finally shot
// analysis. At most one shot transition happens per tick.
func (e *Engine) Tick(in Input) Result {
	var res Result

	e.stepLink(in, &res)

	// Time-only mode is derived, never stored: forced by configuration,
	// or implied by a missing scale.
	timeOnly := e.Settings.ByTimeOnly || !in.ScaleConnected

	if in.ScaleConnected && in.HeartbeatDue {
		res.Effects = append(res.Effects, Effect{Kind: EffectHeartbeat})
	}

	if in.ScaleConnected && in.Weight != nil {
		e.currentWeight = *in.Weight
		if e.shot.Brewing {
			e.shot.Trajectory.Append(Sample{T: in.Now.Sub(e.shot.Start), W: e.currentWeight})
			e.shot.Expected = expectedEnd(
				&e.shot.Trajectory,
				e.Settings.GoalWeight-e.Settings.Offset,
				e.Settings.MinWeightForPrediction,
				e.Settings.MaxShotDuration,
			)
		}
	}

	if e.shot.Brewing {
		e.shot.Elapsed = in.Now.Sub(e.shot.Start)
	}

	e.arbiter.Sample(in.RawSwitch)
	pressed := e.arbiter.Pressed()

	// Reed contacts bounce when the brew output de-energizes; force
	// the reading open for a short window after a shot ends.
	if e.Settings.ReedSwitch && !e.shot.Brewing && !e.shot.Start.IsZero() &&
		in.Now.Before(e.shot.Start.Add(e.shot.EndDuration+e.Settings.ReedDelay)) {
		pressed = false
	}

	switch {
	// Fresh press. Reed contacts start the shot immediately; other
	// switch types toggle on release.
	case pressed && !e.buttonPressed:
		e.buttonPressed = true
		if e.Settings.ReedSwitch {
			e.startShot(in, timeOnly, &res)
		}

	// Switch held past the minimum shot duration: take over the rest
	// of the shot by holding the stop output high.
	case !e.Settings.Momentary && e.shot.Brewing && !e.buttonLatched &&
		e.shot.Elapsed > e.Settings.MinShotDuration:
		e.buttonLatched = true
		res.Effects = append(res.Effects, Effect{Kind: EffectSetTrigger, Level: true})
		if e.Settings.AutoTare {
			res.Effects = append(res.Effects, Effect{Kind: EffectTare})
		}

	// Release while not latched toggles brewing.
	case !e.buttonLatched && !pressed && e.buttonPressed:
		e.buttonPressed = false
		if e.shot.Brewing {
			e.shot.End = EndButton
			e.stopShot(in, timeOnly, &res)
		} else {
			e.startShot(in, timeOnly, &res)
		}

	case e.shot.Brewing && e.shot.Elapsed > e.Settings.MaxShotDuration:
		e.shot.End = EndTime
		e.stopShot(in, timeOnly, &res)

	case e.shot.Brewing && (!in.ScaleConnected || timeOnly) &&
		e.shot.Elapsed >= e.Settings.TargetTime:
		e.shot.End = EndTime
		e.stopShot(in, timeOnly, &res)
	}

	// Weight stop is checked independently of the chain above: a tick
	// that consumed a switch event can still stop on weight.
	if in.ScaleConnected && !timeOnly && e.shot.Brewing &&
		e.shot.Elapsed >= e.shot.Expected &&
		e.shot.Elapsed > e.Settings.MinShotDuration {
		e.shot.End = EndWeight
		e.stopShot(in, timeOnly, &res)
	}

	res.LED = e.ledColor(in)

	e.analyzeShot(in, &res)

	return res
}

func (e *Engine) startShot(in Input, timeOnly bool, res *Result) {
	e.shot.Brewing = true
	e.shot.Start = in.Now
	e.shot.Elapsed = 0
	e.shot.EndDuration = 0
	e.shot.Trajectory.Reset()
	e.shot.Expected = e.Settings.MaxShotDuration

	res.Events = append(res.Events, Event{
		Timestamp: in.Now,
		Type:      EventShotStarted,
		TimeMode:  timeOnly,
	})

	if in.ScaleConnected {
		res.Effects = append(res.Effects, Effect{Kind: EffectResetTimer})
		if e.Settings.AutoTare {
			res.Effects = append(res.Effects, Effect{Kind: EffectTare})
		}
		res.Effects = append(res.Effects, Effect{Kind: EffectStartTimer})
	}
}

// stopShot finalizes the shot using the reason already recorded in
// e.shot.End, then resets it to EndUndefined. Callers must only invoke
// it while brewing; the guards above guarantee that.
func (e *Engine) stopShot(in Input, timeOnly bool, res *Result) {
	reason := e.shot.End
	e.shot.Brewing = false
	e.shot.EndDuration = e.shot.Elapsed

	res.Events = append(res.Events, Event{
		Timestamp:   in.Now,
		Type:        EventShotEnded,
		Reason:      reason,
		Duration:    e.shot.EndDuration,
		FinalWeight: e.currentWeight,
		TimeMode:    timeOnly,
	})

	res.Effects = append(res.Effects, Effect{Kind: EffectStopTimer})

	if e.Settings.Momentary && (reason == EndWeight || reason == EndTime) {
		// Pulse the switch line to stop the machine.
		res.Effects = append(res.Effects, Effect{
			Kind:     EffectPulseTrigger,
			Duration: e.Settings.PulseDuration,
		})
		e.buttonPressed = false
	} else if !e.Settings.Momentary {
		e.buttonLatched = false
		e.buttonPressed = false
		res.Effects = append(res.Effects, Effect{Kind: EffectSetTrigger, Level: false})
	}

	e.shot.End = EndUndefined
}

func (e *Engine) ledColor(in Input) Color {
	blink := in.Now.UnixMilli()/1000%2 == 0
	switch {
	case e.shot.Brewing && in.ScaleConnected:
		if blink {
			return ColorGreen
		}
		return ColorBlue
	case e.shot.Brewing:
		if blink {
			return ColorRed
		}
		return ColorBlue
	case !in.ScaleConnected && in.ScaleConnecting:
		return ColorYellow
	case !in.ScaleConnected:
		return ColorRed
	default:
		return ColorGreen
	}
}

// Brewing reports whether a shot is in progress.
func (e *Engine) Brewing() bool { return e.shot.Brewing }

// Elapsed returns the running shot timer.
func (e *Engine) Elapsed() time.Duration { return e.shot.Elapsed }

// ExpectedEnd returns the predicted shot duration.
func (e *Engine) ExpectedEnd() time.Duration { return e.shot.Expected }

// Link returns the scale link state as of the last tick.
func (e *Engine) Link() ConnState { return e.conn }

// Weight returns the last scale reading, zero while disconnected.
func (e *Engine) Weight() float64 { return e.currentWeight }

// TimeOnly reports whether the engine is brewing by time, either by
// configuration or because no scale is linked.
func (e *Engine) TimeOnly() bool {
	return e.Settings.ByTimeOnly || e.conn != Connected
}

// TrajectoryLen returns the number of samples in the current shot.
func (e *Engine) TrajectoryLen() int { return e.shot.Trajectory.Len() }
