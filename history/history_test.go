package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightlog/blackboxlog/history"
)

func TestRingAdvanceIntraSeedsBothHistorySlots(t *testing.T) {
	r := history.NewRing(2)

	cur := r.Current()
	cur[0], cur[1] = 10, 20
	r.AdvanceIntra()

	h1, ok1 := r.Previous()
	h2, ok2 := r.PreviousPrevious()
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, []int32{10, 20}, h1)
	assert.Equal(t, []int32{10, 20}, h2)
}

func TestRingAdvanceInterShiftsHistory(t *testing.T) {
	r := history.NewRing(1)

	r.Current()[0] = 1
	r.AdvanceIntra() // h1=h2=[1]

	r.Current()[0] = 2
	r.AdvanceInter() // h1=[2], h2=[1]

	h1, _ := r.Previous()
	h2, _ := r.PreviousPrevious()
	assert.Equal(t, int32(2), h1[0])
	assert.Equal(t, int32(1), h2[0])
}

func TestRingRejectedIntraStillReseeds(t *testing.T) {
	r := history.NewRing(1)

	r.Current()[0] = 99
	// Simulates a rejected I-frame: the completion routine calls
	// AdvanceIntra regardless of ValidityGate's verdict.
	r.AdvanceIntra()

	h1, ok := r.Previous()
	require.True(t, ok)
	assert.Equal(t, int32(99), h1[0])
}

func TestHomeRingCommitAndCurrent(t *testing.T) {
	hr := history.NewHomeRing(1)

	_, ok := hr.Current()
	assert.False(t, ok)

	hr.WriteTarget()[0] = 42
	hr.Commit()

	cur, ok := hr.Current()
	require.True(t, ok)
	assert.Equal(t, int32(42), cur[0])
}

func TestShouldHaveFrame(t *testing.T) {
	// I interval 1, P 1/1: every iteration carries a frame.
	for i := 0; i < 10; i++ {
		assert.True(t, history.ShouldHaveFrame(i, 1, 1, 1))
	}

	// I interval 32, P 1/2: every other iteration.
	assert.True(t, history.ShouldHaveFrame(0, 32, 1, 2))
	assert.False(t, history.ShouldHaveFrame(1, 32, 1, 2))
}

func TestCountIntentionallySkippedFrames(t *testing.T) {
	count := history.CountIntentionallySkippedFrames(-1, 1, 1, 2)
	assert.GreaterOrEqual(t, count, 0)
}

func TestGateAcceptIntraFirstFrameAlwaysAccepted(t *testing.T) {
	tr := history.NewTracker()
	g := &history.Gate{Tracker: tr, IterationIndex: 0, TimeIndex: 1, IntervalI: 1, PNum: 1, PDenom: 1}

	accepted := g.AcceptIntra([]int32{0, 1000}, false)
	assert.True(t, accepted)
	assert.True(t, tr.MainStreamIsValid)
}

func TestGateAcceptIntraRejectsBackwardsIteration(t *testing.T) {
	tr := history.NewTracker()
	g := &history.Gate{Tracker: tr, IterationIndex: 0, TimeIndex: 1, IntervalI: 1, PNum: 1, PDenom: 1}

	require.True(t, g.AcceptIntra([]int32{5, 1000}, false))

	accepted := g.AcceptIntra([]int32{5, 1000}, false)
	assert.False(t, accepted)
	assert.False(t, tr.MainStreamIsValid)
}

func TestGateAcceptIntraRejectsHugeIterationJump(t *testing.T) {
	tr := history.NewTracker()
	g := &history.Gate{Tracker: tr, IterationIndex: 0, TimeIndex: 1, IntervalI: 1, PNum: 1, PDenom: 1}

	require.True(t, g.AcceptIntra([]int32{0, 0}, false))

	accepted := g.AcceptIntra([]int32{int32(history.MaximumIterationJump) + 1, 1}, false)
	assert.False(t, accepted)
}

func TestGateAcceptInterRequiresValidStream(t *testing.T) {
	tr := history.NewTracker()
	g := &history.Gate{Tracker: tr, IterationIndex: 0, TimeIndex: 1, IntervalI: 1, PNum: 1, PDenom: 1}

	// No I-frame accepted yet: the stream is not valid, so a P-frame must
	// be rejected outright.
	accepted := g.AcceptInter([]int32{1, 100}, false)
	assert.False(t, accepted)
}

func TestGateAcceptInterFollowsValidIntra(t *testing.T) {
	tr := history.NewTracker()
	g := &history.Gate{Tracker: tr, IterationIndex: 0, TimeIndex: 1, IntervalI: 1, PNum: 1, PDenom: 1}

	require.True(t, g.AcceptIntra([]int32{0, 1000}, false))

	accepted := g.AcceptInter([]int32{1, 1500}, false)
	assert.True(t, accepted)
}

func TestGateRawModeBypassesJumpChecks(t *testing.T) {
	tr := history.NewTracker()
	g := &history.Gate{Tracker: tr, IterationIndex: 0, TimeIndex: 1, IntervalI: 1, PNum: 1, PDenom: 1}

	require.True(t, g.AcceptIntra([]int32{0, 0}, true))
	accepted := g.AcceptIntra([]int32{0, 0}, true)
	assert.True(t, accepted)
}
