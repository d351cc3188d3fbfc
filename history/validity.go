package history

const (
	// MaximumIterationJump bounds how far the control-loop iteration
	// counter may advance between consecutive accepted main frames
	// (spec §4.4).
	MaximumIterationJump = 5000

	// MaximumTimeJump bounds how far the microsecond time field may
	// advance between consecutive accepted main frames (spec §4.4).
	MaximumTimeJump = 10_000_000
)

// Tracker holds the temporal sanity-check state threaded through the
// ValidityGate (spec §3 "Tracking state").
type Tracker struct {
	LastMainFrameIteration int64
	LastMainFrameTime      int64
	MainStreamIsValid      bool
	LastSkippedFrames      int
}

// NewTracker returns a Tracker in its initial state: no prior main frame
// has been accepted.
func NewTracker() *Tracker {
	return &Tracker{LastMainFrameIteration: -1, LastMainFrameTime: -1}
}

// Reset restores the Tracker to its initial state.
func (t *Tracker) Reset() {
	*t = *NewTracker()
}

// ShouldHaveFrame reports whether the logger's sampling-rate configuration
// intended iteration idx to carry a main frame (spec §4.4).
func ShouldHaveFrame(idx, intervalI, pNum, pDenom int) bool {
	if pDenom <= 0 {
		pDenom = 1
	}

	m := ((idx % intervalI) + pNum - 1) % pDenom

	return m < pNum
}

// CountIntentionallySkippedFramesTo counts iterations in
// (lastIteration, target) for which ShouldHaveFrame is false (spec §4.4),
// i.e. iterations the logger intentionally omitted rather than ones lost
// to corruption.
func CountIntentionallySkippedFramesTo(lastIteration, target int64, intervalI, pNum, pDenom int) int {
	count := 0
	for i := lastIteration + 1; i < target; i++ {
		if !ShouldHaveFrame(int(i), intervalI, pNum, pDenom) {
			count++
		}
	}

	return count
}

// CountIntentionallySkippedFrames counts forward from lastIteration+1 the
// run of iterations for which ShouldHaveFrame is false, stopping at the
// first iteration that should have had a frame (spec §4.4). It is used
// before decoding a P-frame to drive the INC predictor (spec §4.2, S2).
func CountIntentionallySkippedFrames(lastIteration int64, intervalI, pNum, pDenom int) int {
	count := 0
	for i := lastIteration + 1; ; i++ {
		if ShouldHaveFrame(int(i), intervalI, pNum, pDenom) {
			break
		}

		count++
	}

	return count
}

// Gate evaluates freshly decoded main frames against the Tracker (spec
// §4.4). The iteration/time field indices and the sampling intervals are
// supplied by the caller since Gate has no knowledge of frame schema.
type Gate struct {
	Tracker *Tracker

	IterationIndex int
	TimeIndex      int

	IntervalI int
	PNum      int
	PDenom    int
}

// AcceptIntra evaluates an I-frame. raw reports whether the decoder is
// running in raw mode (spec §4.4: raw mode and a frame with no prior
// history both bypass the jump checks and are unconditionally accepted).
func (g *Gate) AcceptIntra(current []int32, raw bool) bool {
	iteration := int64(current[g.IterationIndex])
	t := int64(current[g.TimeIndex])

	if raw || g.Tracker.LastMainFrameIteration == -1 {
		g.acceptMain(iteration, t)

		return true
	}

	if !(iteration > g.Tracker.LastMainFrameIteration &&
		iteration < g.Tracker.LastMainFrameIteration+MaximumIterationJump &&
		t >= g.Tracker.LastMainFrameTime &&
		t < g.Tracker.LastMainFrameTime+MaximumTimeJump) {
		g.Tracker.MainStreamIsValid = false

		return false
	}

	g.acceptMain(iteration, t)

	return true
}

// AcceptInter evaluates a P-frame. It never promotes an invalid stream to
// valid; only an I-frame re-synchronizes semantic state (spec §4.4).
func (g *Gate) AcceptInter(current []int32, raw bool) bool {
	iteration := int64(current[g.IterationIndex])
	t := int64(current[g.TimeIndex])

	if raw {
		g.acceptMain(iteration, t)

		return true
	}

	if !g.Tracker.MainStreamIsValid {
		return false
	}

	if t > g.Tracker.LastMainFrameTime+MaximumTimeJump || iteration > g.Tracker.LastMainFrameIteration+MaximumIterationJump {
		g.Tracker.MainStreamIsValid = false

		return false
	}

	g.Tracker.LastSkippedFrames = CountIntentionallySkippedFrames(g.Tracker.LastMainFrameIteration, g.IntervalI, g.PNum, g.PDenom)
	g.acceptMain(iteration, t)

	return true
}

func (g *Gate) acceptMain(iteration, t int64) {
	g.Tracker.LastMainFrameIteration = iteration
	g.Tracker.LastMainFrameTime = t
	g.Tracker.MainStreamIsValid = true
}
