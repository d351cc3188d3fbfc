package predictor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightlog/blackboxlog/errs"
	"github.com/flightlog/blackboxlog/format"
	"github.com/flightlog/blackboxlog/header"
	"github.com/flightlog/blackboxlog/predictor"
)

func baseCtx() *predictor.Context {
	cfg := header.NewSystemConfig()
	return &predictor.Context{
		Config:          &cfg,
		MotorZeroIndex:  -1,
		HomeCoordIndex:  -1,
		HomeCoord1Index: -1,
	}
}

func TestApplyNoneReturnsValueUnchanged(t *testing.T) {
	v, err := predictor.Apply(format.PredictorNone, 42, 0, baseCtx())
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestApplyPreviousNoPriorHistory(t *testing.T) {
	ctx := baseCtx()
	v, err := predictor.Apply(format.PredictorPrevious, 5, 0, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(5), v)
}

func TestApplyPreviousWithHistory(t *testing.T) {
	ctx := baseCtx()
	ctx.HasPrev = true
	ctx.Prev = []int32{100}

	v, err := predictor.Apply(format.PredictorPrevious, 5, 0, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(105), v)
}

func TestApplyAverage2TruncatesTowardZero(t *testing.T) {
	ctx := baseCtx()
	ctx.HasPrev = true
	ctx.Prev = []int32{-1}
	ctx.Prev2 = []int32{-4}

	// sum = -5, truncated division toward zero => -2, not -3.
	v, err := predictor.Apply(format.PredictorAverage2, 0, 0, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(-2), v)
}

func TestApplyStraightLine(t *testing.T) {
	ctx := baseCtx()
	ctx.HasPrev = true
	ctx.Prev = []int32{10}
	ctx.Prev2 = []int32{4}

	v, err := predictor.Apply(format.PredictorStraightLine, 0, 0, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(16), v) // 2*10 - 4
}

func TestApplyMotor0RequiresDeclaredField(t *testing.T) {
	ctx := baseCtx()
	_, err := predictor.Apply(format.PredictorMotor0, 1, 3, ctx)
	assert.ErrorIs(t, err, errs.ErrMotorZeroUndeclared)
}

func TestApplyMotor0WithDeclaredField(t *testing.T) {
	ctx := baseCtx()
	ctx.MotorZeroIndex = 0
	ctx.Current = []int32{1500, 0}

	v, err := predictor.Apply(format.PredictorMotor0, 10, 1, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1510), v)
}

func TestApplyHomeCoordRequiresHomeFrame(t *testing.T) {
	ctx := baseCtx()
	_, err := predictor.Apply(format.PredictorHomeCoord, 1, 0, ctx)
	assert.ErrorIs(t, err, errs.ErrHomeCoordUndeclared)
}

func TestApplyHomeCoordWithHomeFrame(t *testing.T) {
	ctx := baseCtx()
	ctx.GPSHome = []int32{500000000}
	ctx.HomeCoordIndex = 0

	v, err := predictor.Apply(format.PredictorHomeCoord, 10, 1, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(500000010), v)
}

func TestApplyUnknownPredictor(t *testing.T) {
	ctx := baseCtx()
	_, err := predictor.Apply(format.Predictor(999), 1, 0, ctx)
	assert.ErrorIs(t, err, errs.ErrUnknownPredictor)
}

func TestApplyMinthrottleAndConst1500AndVbatRef(t *testing.T) {
	ctx := baseCtx()
	ctx.Config.Minthrottle = 1150
	ctx.Config.VbatRef = 330

	v, err := predictor.Apply(format.PredictorMinthrottle, 0, 0, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1150), v)

	v, err = predictor.Apply(format.PredictorConst1500, 0, 0, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1500), v)

	v, err = predictor.Apply(format.PredictorVbatRef, 0, 0, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(330), v)
}

func TestApplyLastMainTime(t *testing.T) {
	ctx := baseCtx()
	ctx.HasPrevMainFrame = true
	ctx.PrevMainFrameTime = 1000

	v, err := predictor.Apply(format.PredictorLastMainTime, 500, 0, ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1500), v)
}
