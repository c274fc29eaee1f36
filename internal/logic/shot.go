package logic

import "time"

// Sample is one (elapsed, weight) trajectory point.
type Sample struct {
	T time.Duration // since shot start
	W float64       // grams
}

// Trajectory is a fixed-capacity, append-only record of weight samples
// for the current shot. Once full, further appends are dropped.
type Trajectory struct {
	samples []Sample
}

func newTrajectory() Trajectory {
	return Trajectory{samples: make([]Sample, 0, MaxSamples)}
}

// Append records a sample. Returns false if the trajectory is full.
func (tr *Trajectory) Append(s Sample) bool {
	if len(tr.samples) >= MaxSamples {
		return false
	}
	tr.samples = append(tr.samples, s)
	return true
}

// Len returns the number of recorded samples.
func (tr *Trajectory) Len() int { return len(tr.samples) }

// Last returns the most recent sample. Only valid if Len() > 0.
func (tr *Trajectory) Last() Sample { return tr.samples[len(tr.samples)-1] }

// Tail returns the trailing n samples without copying. Only valid if
// Len() >= n.
func (tr *Trajectory) Tail(n int) []Sample { return tr.samples[len(tr.samples)-n:] }

// Reset clears the trajectory, keeping its backing storage.
func (tr *Trajectory) Reset() { tr.samples = tr.samples[:0] }

// Shot represents one brew attempt, from trigger to stop.
type Shot struct {
	// Start is set when brewing begins. Zero means no shot in
	// progress, or the last shot has already been analyzed.
	Start time.Time

	// Elapsed is recomputed every tick while brewing.
	Elapsed time.Duration

	// EndDuration is the shot length captured once at stop time. The
	// calibrator consumes it, then clears it.
	EndDuration time.Duration

	// Expected is the predicted shot length. Defaults to the maximum
	// shot duration until the trend fit has something to say.
	Expected time.Duration

	Trajectory Trajectory
	Brewing    bool
	End        EndReason
}

func newShot() Shot {
	return Shot{Trajectory: newTrajectory(), End: EndUndefined}
}
