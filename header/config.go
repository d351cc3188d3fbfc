// Package header implements the HeaderParser (spec §4.1): it consumes the
// `H <key>:<value>` lines at the start of a Blackbox log, populates the
// SystemConfig snapshot and the per-frame-type FrameDef registry, and
// performs the HOME_COORD/HOME_COORD_1 post-processing pass.
package header

import "github.com/flightlog/blackboxlog/format"

// SystemConfig is the key/value snapshot derived from the header (spec §3).
type SystemConfig struct {
	FrameIntervalI      int
	FrameIntervalPNum   int
	FrameIntervalPDenom int

	FirmwareType format.FirmwareType
	DataVersion  int

	Minthrottle int
	Maxthrottle int

	VbatRef                int
	VbatScale              int
	VbatMinCellVoltage     int
	VbatWarningCellVoltage int
	VbatMaxCellVoltage     int

	CurrentMeterOffset int
	CurrentMeterScale  int

	RcRate int
	Acc1G  int

	// GyroScale is normalized to the baseflight convention at ingest: for
	// cleanflight firmware the raw header value is multiplied by
	// pi/180 * 1e-6 (spec §4.1, S7).
	GyroScale float64
}

// NewSystemConfig returns a SystemConfig with the spec-mandated defaults: an
// I-frame interval of 1 and a P-frame sampling fraction of 1/1, i.e. every
// iteration is expected to carry a main frame until the header says
// otherwise.
func NewSystemConfig() SystemConfig {
	return SystemConfig{
		FrameIntervalI:      1,
		FrameIntervalPNum:   1,
		FrameIntervalPDenom: 1,
	}
}
