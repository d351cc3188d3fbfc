package format

// Predictor identifies a wire-stable rule (spec §3) that adds a correction
// derived from frame history and system configuration to a raw decoded
// delta. The numeric IDs are part of the wire contract and must not be
// renumbered.
type Predictor int

const (
	PredictorNone         Predictor = 0
	PredictorPrevious     Predictor = 1
	PredictorStraightLine Predictor = 2
	PredictorAverage2     Predictor = 3
	PredictorMinthrottle  Predictor = 4
	PredictorMotor0       Predictor = 5
	PredictorInc          Predictor = 6
	PredictorHomeCoord    Predictor = 7
	PredictorConst1500    Predictor = 8
	PredictorVbatRef      Predictor = 9
	PredictorLastMainTime Predictor = 10

	// PredictorHomeCoord1 is a synthetic predictor produced by header
	// post-processing (spec §4.1): the second of an adjacent HOME_COORD
	// pair in a G-frame predictor vector is rewritten to this ID so
	// latitude and longitude each reference the correct home coordinate.
	PredictorHomeCoord1 Predictor = 256
)

func (p Predictor) String() string {
	switch p {
	case PredictorNone:
		return "NONE"
	case PredictorPrevious:
		return "PREVIOUS"
	case PredictorStraightLine:
		return "STRAIGHT_LINE"
	case PredictorAverage2:
		return "AVERAGE_2"
	case PredictorMinthrottle:
		return "MINTHROTTLE"
	case PredictorMotor0:
		return "MOTOR_0"
	case PredictorInc:
		return "INC"
	case PredictorHomeCoord:
		return "HOME_COORD"
	case PredictorConst1500:
		return "CONST_1500"
	case PredictorVbatRef:
		return "VBATREF"
	case PredictorLastMainTime:
		return "LAST_MAIN_TIME"
	case PredictorHomeCoord1:
		return "HOME_COORD_1"
	default:
		return "UNKNOWN"
	}
}
