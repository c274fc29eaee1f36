package logic

// stepLink advances the scale link state from the collaborator's
// predicates and emits the retry/abort side effects. This is the only
// place the tri-state link status changes.
//
// Entering Disconnected zeroes the current weight and, unless the
// daemon is configured to brew by time anyway, aborts a shot in
// progress. While not connected the engine asks for a new connection
// attempt (when idle) and a link state-machine step every tick; both
// are non-blocking and owned by the scale collaborator.
func (e *Engine) stepLink(in Input, res *Result) {
	prev := e.conn
	switch {
	case in.ScaleConnected:
		e.conn = Connected
	case in.ScaleConnecting:
		e.conn = Connecting
	default:
		e.conn = Disconnected
	}

	if e.conn == Disconnected && prev != Disconnected {
		e.currentWeight = 0
		if e.shot.Brewing && !e.Settings.ByTimeOnly {
			e.shot.End = EndDisconnect
			// The shot was brewing by weight until this very tick.
			e.stopShot(in, false, res)
		}
	}

	if e.conn == Disconnected {
		res.Effects = append(res.Effects, Effect{Kind: EffectConnectScale})
	}
	if e.conn != Connected {
		res.Effects = append(res.Effects, Effect{Kind: EffectAdvanceLink})
	}
}
