package logic

// Arbiter debounces the brew switch. It keeps a ring of the last
// DebounceWindow logical samples and reads "pressed" if any of them is
// active: a press is detected quickly, a release is confirmed only once
// the whole window agrees the contact is open. The asymmetry is what
// suppresses chatter on release.
type Arbiter struct {
	ring [DebounceWindow]bool
	idx  int
}

// Sample records one logical switch level (true = contact closed).
func (a *Arbiter) Sample(active bool) {
	a.ring[a.idx] = active
	a.idx = (a.idx + 1) % DebounceWindow
}

// Pressed reports whether any sample in the window is active.
func (a *Arbiter) Pressed() bool {
	for _, s := range a.ring {
		if s {
			return true
		}
	}
	return false
}
