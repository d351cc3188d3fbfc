package header

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/flightlog/blackboxlog/errs"
	"github.com/flightlog/blackboxlog/format"
	"github.com/flightlog/blackboxlog/stream"
)

const (
	maxHeaderLineLen = 1024
	productLine      = "Product:Blackbox flight data recorder by Nicholas Sherlock"
)

// Result is everything parseHeader discovers from the header lines of a log
// (spec §3, §4.1).
type Result struct {
	Config SystemConfig

	Frames map[format.FrameType]*FrameDef

	MainFieldNames    []string
	GPSFieldNames     []string
	GPSHomeFieldNames []string

	MainNameToIndex    map[string]int
	GPSNameToIndex     map[string]int
	GPSHomeNameToIndex map[string]int
}

// Parse consumes header lines from r for as long as the dispatcher's next
// candidate frame-type tag is 'H' immediately followed by an ASCII space
// (spec §4.1: this is how a header-line continuation is told apart from a
// binary GPS-home frame, which also tags itself with 'H').
//
// On return, r is positioned just before the first byte that is not part of
// a header line, ready for the frame dispatcher to take over.
func Parse(r *stream.Reader) (*Result, error) {
	res := &Result{
		Config: NewSystemConfig(),
		Frames: map[format.FrameType]*FrameDef{
			format.FrameIntra:   {},
			format.FrameInter:   {},
			format.FrameGPS:     {},
			format.FrameGPSHome: {},
		},
	}

	for {
		tag := r.ReadChar()
		if tag != int(format.FrameGPSHome) {
			if tag != stream.EOF {
				r.UnreadChar(byte(tag))
			}

			break
		}

		next := r.PeekChar()
		if next != ' ' {
			// Not a header continuation: this is a real H (GPS-home) frame
			// tag for the dispatcher. Rewind past the byte we consumed.
			r.UnreadChar(byte(format.FrameGPSHome))

			break
		}

		r.ReadChar() // consume the separating space

		line, err := readLine(r)
		if err != nil {
			return nil, err
		}

		applyHeaderLine(res, line)
	}

	finalize(res)

	if err := validate(res); err != nil {
		return nil, err
	}

	return res, nil
}

func readLine(r *stream.Reader) (string, error) {
	var sb strings.Builder

	for {
		if sb.Len() >= maxHeaderLineLen {
			return "", errs.ErrHeaderLineTooLong
		}

		c := r.ReadChar()
		if c == stream.EOF || c == 0x0a || c == 0x00 {
			break
		}

		sb.WriteByte(byte(c))
	}

	return sb.String(), nil
}

func applyHeaderLine(res *Result, line string) {
	if line == productLine {
		return
	}

	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}

	switch {
	case key == "Field I name":
		res.MainFieldNames = strings.Split(value, ",")
	case key == "Field G name":
		res.GPSFieldNames = strings.Split(value, ",")
	case key == "Field H name":
		res.GPSHomeFieldNames = strings.Split(value, ",")
	case key == "Field I signed":
		res.Frames[format.FrameIntra].Signed = parseBoolInts(value)
	case strings.HasPrefix(key, "Field ") && strings.HasSuffix(key, " predictor"):
		applyVector(res, key, " predictor", value, true)
	case strings.HasPrefix(key, "Field ") && strings.HasSuffix(key, " encoding"):
		applyVector(res, key, " encoding", value, false)
	case key == "I interval":
		if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			if v < 1 {
				v = 1
			}
			res.Config.FrameIntervalI = v
		}
	case key == "P interval":
		applyPInterval(res, value)
	case key == "Data version":
		if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			res.Config.DataVersion = v
		}
	case key == "Firmware type":
		if strings.TrimSpace(value) == "Cleanflight" {
			res.Config.FirmwareType = format.FirmwareCleanflight
		} else {
			res.Config.FirmwareType = format.FirmwareBaseflight
		}
	case key == "minthrottle":
		res.Config.Minthrottle = atoiOrZero(value)
	case key == "maxthrottle":
		res.Config.Maxthrottle = atoiOrZero(value)
	case key == "rcRate":
		res.Config.RcRate = atoiOrZero(value)
	case key == "vbatscale":
		res.Config.VbatScale = atoiOrZero(value)
	case key == "vbatref":
		res.Config.VbatRef = atoiOrZero(value)
	case key == "acc_1G":
		res.Config.Acc1G = atoiOrZero(value)
	case key == "vbatcellvoltage":
		parts := parseInts(value)
		if len(parts) == 3 {
			res.Config.VbatMinCellVoltage = parts[0]
			res.Config.VbatWarningCellVoltage = parts[1]
			res.Config.VbatMaxCellVoltage = parts[2]
		}
	case key == "currentMeter":
		parts := parseInts(value)
		if len(parts) == 2 {
			res.Config.CurrentMeterOffset = parts[0]
			res.Config.CurrentMeterScale = parts[1]
		}
	case key == "gyro.scale":
		applyGyroScale(res, value)
	default:
		// Unknown keys are silently ignored (spec §4.1).
	}
}

func applyVector(res *Result, key, suffix, value string, isPredictor bool) {
	frameLetter := strings.TrimSuffix(strings.TrimPrefix(key, "Field "), suffix)
	if len(frameLetter) != 1 {
		return
	}

	def, ok := res.Frames[format.FrameType(frameLetter[0])]
	if !ok {
		return
	}

	ints := parseInts(value)
	if isPredictor {
		def.Predictors = make([]format.Predictor, len(ints))
		for i, v := range ints {
			def.Predictors[i] = format.Predictor(v)
		}
	} else {
		def.Encodings = make([]format.Encoding, len(ints))
		for i, v := range ints {
			def.Encodings[i] = format.Encoding(v)
		}
	}
}

func applyPInterval(res *Result, value string) {
	num, denom, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return
	}

	n, err1 := strconv.Atoi(num)
	d, err2 := strconv.Atoi(denom)
	if err1 != nil || err2 != nil || d <= 0 {
		return
	}

	res.Config.FrameIntervalPNum = n
	res.Config.FrameIntervalPDenom = d
}

func applyGyroScale(res *Result, value string) {
	bits, err := strconv.ParseUint(strings.TrimSpace(value), 16, 32)
	if err != nil {
		return
	}

	scale := math.Float32frombits(uint32(bits))
	res.Config.GyroScale = float64(scale)

	if res.Config.FirmwareType == format.FirmwareCleanflight {
		res.Config.GyroScale *= math.Pi / 180.0 * 1e-6
	}
}

func parseInts(value string) []int {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))

	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}

		out = append(out, v)
	}

	return out
}

func parseBoolInts(value string) []bool {
	ints := parseInts(value)
	out := make([]bool, len(ints))
	for i, v := range ints {
		out[i] = v != 0
	}

	return out
}

func atoiOrZero(value string) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}

	return v
}

func finalize(res *Result) {
	res.Frames[format.FrameIntra].Names = res.MainFieldNames
	res.Frames[format.FrameInter].Names = res.MainFieldNames
	res.Frames[format.FrameGPS].Names = res.GPSFieldNames
	res.Frames[format.FrameGPSHome].Names = res.GPSHomeFieldNames

	for _, def := range res.Frames {
		def.buildNameToIndex()
	}

	res.MainNameToIndex = res.Frames[format.FrameIntra].NameToIndex
	res.GPSNameToIndex = res.Frames[format.FrameGPS].NameToIndex
	res.GPSHomeNameToIndex = res.Frames[format.FrameGPSHome].NameToIndex

	rewriteHomeCoordPair(res.Frames[format.FrameGPS])
}

// rewriteHomeCoordPair implements the HOME_COORD/HOME_COORD_1
// disambiguation pass (spec §4.1, S3): for every pair of adjacent
// HOME_COORD predictor entries in the G frame, the second is rewritten to
// HOME_COORD_1 so that latitude and longitude each reference the matching
// home coordinate field.
func rewriteHomeCoordPair(gps *FrameDef) {
	if gps == nil {
		return
	}

	for i := 1; i < len(gps.Predictors); i++ {
		if gps.Predictors[i-1] == format.PredictorHomeCoord && gps.Predictors[i] == format.PredictorHomeCoord {
			gps.Predictors[i] = format.PredictorHomeCoord1
		}
	}
}

func validate(res *Result) error {
	if len(res.MainFieldNames) == 0 {
		return errs.ErrNoMainFields
	}

	iDef := res.Frames[format.FrameIntra]
	if !iDef.HasPredictorsAndEncodings() {
		return errs.ErrMissingIFrameDef
	}

	pDef := res.Frames[format.FrameInter]
	if !pDef.HasPredictorsAndEncodings() {
		return fmt.Errorf("%w", errs.ErrMissingPFrameDef)
	}

	if len(iDef.Predictors) != len(pDef.Predictors) || len(iDef.Encodings) != len(pDef.Encodings) {
		return errs.ErrFrameDefVectorSize
	}

	return nil
}

// DataVersionSelectsV2 reports whether the TAG8_4S16 encoding should use
// its v2 wire variant (spec §4.2, design note on the dataVersion branch).
func DataVersionSelectsV2(cfg SystemConfig) bool {
	return cfg.DataVersion >= 2
}
