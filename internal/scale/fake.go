package scale

// Fake is a scripted Scale for tests. Predicates and readings are set
// directly by the test; command calls are counted.
type Fake struct {
	ConnectedState  bool
	ConnectingState bool
	HeartbeatIsDue  bool

	// Readings are consumed one per NewWeightAvailable call.
	Readings []float64
	index    int
	weight   float64

	ConnectCalls   int
	AdvanceCalls   int
	HeartbeatCalls int
	TareCalls      int
	ResetCalls     int
	StartCalls     int
	StopCalls      int
	Closed         bool
}

// NewFake creates a disconnected fake scale.
func NewFake() *Fake { return &Fake{} }

// PushReading queues a reading for the next NewWeightAvailable poll.
func (f *Fake) PushReading(grams float64) {
	f.Readings = append(f.Readings, grams)
}

func (f *Fake) Connected() bool  { return f.ConnectedState }
func (f *Fake) Connecting() bool { return f.ConnectingState }

func (f *Fake) Connect() error {
	f.ConnectCalls++
	return nil
}

func (f *Fake) Advance() { f.AdvanceCalls++ }

func (f *Fake) HeartbeatDue() bool { return f.HeartbeatIsDue }

func (f *Fake) Heartbeat() error {
	f.HeartbeatCalls++
	return nil
}

func (f *Fake) NewWeightAvailable() bool {
	if f.index >= len(f.Readings) {
		return false
	}
	f.weight = f.Readings[f.index]
	f.index++
	return true
}

func (f *Fake) Weight() float64 { return f.weight }

func (f *Fake) Tare() error {
	f.TareCalls++
	return nil
}

func (f *Fake) ResetTimer() error {
	f.ResetCalls++
	return nil
}

func (f *Fake) StartTimer() error {
	f.StartCalls++
	return nil
}

func (f *Fake) StopTimer() error {
	f.StopCalls++
	return nil
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
