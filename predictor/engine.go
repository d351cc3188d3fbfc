// Package predictor implements the PredictorEngine (spec §4.3): a stateless
// function from (predictor kind, raw value, history, sys-config) to a
// decoded field value.
package predictor

import (
	"github.com/flightlog/blackboxlog/errs"
	"github.com/flightlog/blackboxlog/format"
	"github.com/flightlog/blackboxlog/header"
)

// Context carries everything Apply needs besides the predictor kind and raw
// value: the current (in-progress) frame buffer, the two history slots, the
// system configuration, and lookups into the main field set, the GPS home
// field set, and the previous main frame's time (for LAST_MAIN_TIME).
type Context struct {
	Current []int32

	Prev     []int32
	HasPrev  bool
	Prev2    []int32
	HasPrev2 bool

	Config *header.SystemConfig

	// MotorZeroIndex is the index of "motor[0]" in the main field set, or
	// -1 if it was never declared.
	MotorZeroIndex int

	// GPSHome is the most recently committed home frame, or nil if none.
	GPSHome           []int32
	HomeCoordIndex    int // index of "GPS_home[0]" in the home field set, or -1
	HomeCoord1Index   int // index of "GPS_home[1]" in the home field set, or -1

	HasPrevMainFrame  bool
	PrevMainFrameTime int64
}

// Apply adds the correction for predictor kind to value for field fieldIndex
// of the frame under construction, returning the decoded value. It returns
// an error for an unknown predictor ID or one that references an undeclared
// field (spec §4.3, §7 "Schema-fatal at frame-decode time").
func Apply(kind format.Predictor, value int32, fieldIndex int, ctx *Context) (int32, error) {
	switch kind {
	case format.PredictorNone:
		return value, nil

	case format.PredictorPrevious:
		if ctx.HasPrev {
			return value + ctx.Prev[fieldIndex], nil
		}

		return value, nil

	case format.PredictorStraightLine:
		if ctx.HasPrev {
			return value + 2*ctx.Prev[fieldIndex] - ctx.Prev2[fieldIndex], nil
		}

		return value, nil

	case format.PredictorAverage2:
		if ctx.HasPrev {
			return value + truncDiv2(ctx.Prev[fieldIndex]+ctx.Prev2[fieldIndex]), nil
		}

		return value, nil

	case format.PredictorMinthrottle:
		return value + int32(ctx.Config.Minthrottle), nil

	case format.PredictorConst1500:
		return value + 1500, nil

	case format.PredictorVbatRef:
		return value + int32(ctx.Config.VbatRef), nil

	case format.PredictorMotor0:
		if ctx.MotorZeroIndex < 0 {
			return 0, errs.ErrMotorZeroUndeclared
		}

		return value + ctx.Current[ctx.MotorZeroIndex], nil

	case format.PredictorHomeCoord:
		if ctx.GPSHome == nil || ctx.HomeCoordIndex < 0 {
			return 0, errs.ErrHomeCoordUndeclared
		}

		return value + ctx.GPSHome[ctx.HomeCoordIndex], nil

	case format.PredictorHomeCoord1:
		if ctx.GPSHome == nil || ctx.HomeCoord1Index < 0 {
			return 0, errs.ErrHomeCoord1Undeclared
		}

		return value + ctx.GPSHome[ctx.HomeCoord1Index], nil

	case format.PredictorLastMainTime:
		if ctx.HasPrevMainFrame {
			return value + int32(ctx.PrevMainFrameTime), nil
		}

		return value, nil

	default:
		return 0, errs.ErrUnknownPredictor
	}
}

// truncDiv2 divides a sum by 2, truncating toward zero rather than
// flooring (spec §4.3, §9 "Division semantics"; S1). This matters only for
// odd negative sums: e.g. trunc(-5/2) == -2, not -3.
func truncDiv2(sum int32) int32 {
	if sum < 0 {
		return -(-sum >> 1)
	}

	return sum >> 1
}
