package logic

import "time"

// expectedEnd estimates when the trajectory will cross target grams, by
// fitting an ordinary least-squares line through the trailing TrendWindow
// samples. It returns max when no usable prediction exists: too few
// samples, the latest reading still below minWeight, or a flat/negative
// fitted slope (flow stalled or reversed, e.g. during a blooming shot).
//
// The result is deliberately not clamped: a prediction past max is
// superseded by the max-duration stop anyway.
func expectedEnd(tr *Trajectory, target, minWeight float64, max time.Duration) time.Duration {
	if tr.Len() < TrendWindow || tr.Last().W < minWeight {
		return max
	}

	window := tr.Tail(TrendWindow)

	var sumX, sumY, sumXY, sumXX float64
	for _, s := range window {
		x := s.T.Seconds()
		sumX += x
		sumY += s.W
		sumXY += x * s.W
		sumXX += x * x
	}

	n := float64(TrendWindow)
	m := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	if !(m > 0) { // also catches NaN from a degenerate window
		return max
	}
	b := sumY/n - m*(sumX/n)

	// Solve target = m*t + b for t.
	return time.Duration((target - b) / m * float64(time.Second))
}
