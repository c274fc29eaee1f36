package logic

import (
	"math"
	"time"
)

// analyzeShot runs the post-shot offset auto-calibration. It fires at
// most once per completed shot: only with a connected scale, only after
// the cup has reached at least goal-offset grams, and only once the
// drip-settling delay has passed since the shot ended. Clearing the
// shot markers up front guarantees it cannot re-fire.
//
// The learned offset compensates for liquid that keeps dripping after
// the stop trigger. A corrected offset beyond the configured maximum is
// treated as a measurement anomaly, and one that would go negative is
// physically meaningless; both leave the old offset in force and are
// only reported.
func (e *Engine) analyzeShot(in Input, res *Result) {
	if !in.ScaleConnected || e.shot.Start.IsZero() || e.shot.EndDuration == 0 {
		return
	}
	if e.currentWeight < e.Settings.GoalWeight-e.Settings.Offset {
		return
	}
	if !in.Now.After(e.shot.Start.Add(e.shot.EndDuration + e.Settings.DripDelay)) {
		return
	}

	e.shot.Start = time.Time{}
	e.shot.EndDuration = 0

	errGrams := e.currentWeight - e.Settings.GoalWeight
	newOffset := e.Settings.Offset + errGrams

	switch {
	case math.Abs(newOffset) > e.Settings.MaxOffset, newOffset < 0:
		res.Events = append(res.Events, Event{
			Timestamp:   in.Now,
			Type:        EventOffsetRejected,
			FinalWeight: e.currentWeight,
			Offset:      e.Settings.Offset,
		})
	default:
		e.Settings.Offset = newOffset
		res.Events = append(res.Events, Event{
			Timestamp:   in.Now,
			Type:        EventOffsetAdjusted,
			FinalWeight: e.currentWeight,
			Offset:      newOffset,
		})
		res.Effects = append(res.Effects, Effect{Kind: EffectPersistOffset, Value: newOffset})
	}
}
