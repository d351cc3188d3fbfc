package decode

import (
	"fmt"

	"github.com/flightlog/blackboxlog/format"
	"github.com/flightlog/blackboxlog/header"
	"github.com/flightlog/blackboxlog/history"
	"github.com/flightlog/blackboxlog/predictor"
	"github.com/flightlog/blackboxlog/stream"
)

// maxFrameLength is FLIGHT_LOG_MAX_FRAME_LENGTH (spec §4.5, §7): a frame
// whose body exceeds this many bytes is treated as corrupt.
const maxFrameLength = 256

// Sink receives every decoded frame in file order, exactly once each,
// including corrupt frames (valid=false, frame=nil) (spec §5).
//
// The frame slice passed to OnFrameReady is a borrowed view into the
// decoder's own history ring; it is valid only until OnFrameReady returns.
// Implementations must copy it to retain it, and must not mutate it or
// call back into the Decoder.
type Sink interface {
	OnFrameReady(valid bool, frame []int32, frameType format.FrameType, byteOffset, byteLength int)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(valid bool, frame []int32, frameType format.FrameType, byteOffset, byteLength int)

// OnFrameReady implements Sink.
func (f SinkFunc) OnFrameReady(valid bool, frame []int32, frameType format.FrameType, byteOffset, byteLength int) {
	f(valid, frame, frameType, byteOffset, byteLength)
}

// Decoder is the top-level parser: it owns the schema discovered by the
// HeaderParser, the history rings, the ValidityGate, and the StatsCollector,
// and drives the Dispatcher loop described in spec §4.5.
//
// A Decoder is not safe for concurrent use; a host that wants to parse
// several logs concurrently should use one Decoder per buffer (spec §5).
type Decoder struct {
	Config SystemConfigView

	MainFieldNames    []string
	GPSFieldNames     []string
	GPSHomeFieldNames []string

	MainNameToIndex    map[string]int
	GPSNameToIndex     map[string]int
	GPSHomeNameToIndex map[string]int

	Stats *Stats

	sink Sink

	hdr *header.Result

	mainRing *history.Ring
	homeRing *history.HomeRing

	tracker *history.Tracker
	gate    *history.Gate

	lastEvent           Event
	hasEvent            bool
	lastEventRecognized bool

	gpsHomeIsValid  bool
	pendingGPSFrame []int32

	homeCoordIndex  int
	homeCoord1Index int
	motorZeroIndex  int
	iterationIndex  int
	timeIndex       int
}

// SystemConfigView exposes the parsed SystemConfig (spec §6 "sysConfig").
type SystemConfigView = header.SystemConfig

// NewDecoder creates a Decoder with no schema. Call ParseHeader before
// ParseLogData.
func NewDecoder(sink Sink) *Decoder {
	return &Decoder{sink: sink}
}

// ParseHeader resets all state, consumes the `H ...` header lines from r,
// and allocates history rings sized to the discovered field counts (spec
// §6). It returns a header-fatal error (spec §7) if the header fails to
// describe a usable schema.
func (d *Decoder) ParseHeader(r *stream.Reader) error {
	d.resetAll()

	res, err := header.Parse(r)
	if err != nil {
		return err
	}

	d.hdr = res
	d.Config = res.Config
	d.MainFieldNames = res.MainFieldNames
	d.GPSFieldNames = res.GPSFieldNames
	d.GPSHomeFieldNames = res.GPSHomeFieldNames
	d.MainNameToIndex = res.MainNameToIndex
	d.GPSNameToIndex = res.GPSNameToIndex
	d.GPSHomeNameToIndex = res.GPSHomeNameToIndex

	mainFieldCount := len(res.MainFieldNames)
	d.mainRing = history.NewRing(mainFieldCount)
	d.homeRing = history.NewHomeRing(len(res.GPSHomeFieldNames))
	d.tracker = history.NewTracker()
	d.Stats = NewStats(mainFieldCount)

	d.iterationIndex = indexOrDefault(res.MainNameToIndex, "iteration", 0)
	d.timeIndex = indexOrDefault(res.MainNameToIndex, "time", 1)
	d.motorZeroIndex = indexOrMissing(res.MainNameToIndex, "motor[0]")
	d.homeCoordIndex = indexOrMissing(res.GPSHomeNameToIndex, "GPS_home[0]")
	d.homeCoord1Index = indexOrMissing(res.GPSHomeNameToIndex, "GPS_home[1]")

	d.gate = &history.Gate{
		Tracker:        d.tracker,
		IterationIndex: d.iterationIndex,
		TimeIndex:      d.timeIndex,
		IntervalI:      d.Config.FrameIntervalI,
		PNum:           d.Config.FrameIntervalPNum,
		PDenom:         d.Config.FrameIntervalPDenom,
	}

	return nil
}

func indexOrDefault(m map[string]int, name string, def int) int {
	if idx, ok := m[name]; ok {
		return idx
	}

	return def
}

func indexOrMissing(m map[string]int, name string) int {
	if idx, ok := m[name]; ok {
		return idx
	}

	return -1
}

// ResetStats clears all counters (spec §6).
func (d *Decoder) ResetStats() {
	if d.Stats != nil {
		d.Stats.Reset()
	}
}

// ResetState clears schema, history and tracking state, in addition to
// stats, forcing a fresh ParseHeader call before the Decoder can parse log
// data again (spec §6; SPEC_FULL §3.1).
func (d *Decoder) ResetState() {
	d.resetAll()
}

func (d *Decoder) resetAll() {
	d.hdr = nil
	d.Config = header.NewSystemConfig()
	d.MainFieldNames = nil
	d.GPSFieldNames = nil
	d.GPSHomeFieldNames = nil
	d.MainNameToIndex = nil
	d.GPSNameToIndex = nil
	d.GPSHomeNameToIndex = nil
	d.Stats = nil
	d.mainRing = nil
	d.homeRing = nil
	d.tracker = nil
	d.gate = nil
	d.hasEvent = false
	d.lastEvent = Event{}
	d.lastEventRecognized = false
	d.gpsHomeIsValid = false
	d.pendingGPSFrame = nil
}

// LastEvent returns the most recently parsed event record and whether one
// has been seen yet (spec §3 "Last-event record"). Unrecognized events and
// mismatched LOG_END literals leave the previous record in place.
func (d *Decoder) LastEvent() (Event, bool) {
	return d.lastEvent, d.hasEvent
}

// ParseLogData runs the Dispatcher loop over r until EOF, emitting frames
// via the Sink supplied to NewDecoder. It returns true on normal
// termination (spec §6).
func (d *Decoder) ParseLogData(r *stream.Reader, raw bool) (bool, error) {
	var lastType format.FrameType
	haveLastType := false
	frameStart := r.Pos

	for {
		if haveLastType {
			lastFrameSize := r.Pos - frameStart

			tagPeek := r.PeekChar()
			nextIsKnown := tagPeek != stream.EOF && format.FrameType(tagPeek).IsKnown()
			cleanEOF := tagPeek == stream.EOF && !r.EOFHit

			if nextIsKnown || cleanEOF {
				if lastFrameSize <= maxFrameLength {
					if err := d.completeFrame(lastType, frameStart, lastFrameSize, r, raw); err != nil {
						return false, err
					}
				} else {
					d.Stats.RecordCorrupt(lastType)
					d.tracker.MainStreamIsValid = false
					d.sink.OnFrameReady(false, nil, lastType, frameStart, lastFrameSize)
				}
			} else {
				d.tracker.MainStreamIsValid = false
				d.Stats.RecordCorrupt(lastType)
				d.sink.OnFrameReady(false, nil, lastType, frameStart, lastFrameSize)

				r.Seek(frameStart + 1)
				r.EOFHit = false
				haveLastType = false

				continue
			}

			haveLastType = false
		}

		if r.AtEnd() {
			return true, nil
		}

		frameStart = r.Pos
		tag := r.ReadChar()
		if tag == stream.EOF {
			return true, nil
		}

		ft := format.FrameType(tag)
		if !ft.IsKnown() {
			d.tracker.MainStreamIsValid = false

			continue
		}

		if err := d.beginFrame(ft, r, raw); err != nil {
			return false, err
		}

		lastType = ft
		haveLastType = true
	}
}

// beginFrame invokes the parser for a newly recognized frame-type tag.
// Schema-fatal errors (spec §7) abort the parse; all other outcomes are
// deferred to completeFrame on the next loop iteration.
func (d *Decoder) beginFrame(ft format.FrameType, r *stream.Reader, raw bool) error {
	switch ft {
	case format.FrameIntra:
		return d.decodeMainFrame(r, format.FrameIntra, d.mainRing.Current(), 0, raw)
	case format.FrameInter:
		skipped := history.CountIntentionallySkippedFrames(d.tracker.LastMainFrameIteration, d.Config.FrameIntervalI, d.Config.FrameIntervalPNum, d.Config.FrameIntervalPDenom)

		return d.decodeMainFrame(r, format.FrameInter, d.mainRing.Current(), skipped, raw)
	case format.FrameGPSHome:
		return d.decodeHomeFrame(r)
	case format.FrameGPS:
		return d.decodeGPSFrame(r)
	case format.FrameEvent:
		ev, ok := ParseEvent(r)
		d.lastEventRecognized = ok
		if ok {
			d.lastEvent = ev
			d.hasEvent = true
		}

		return nil
	default:
		return fmt.Errorf("decode: unreachable frame type %v", ft)
	}
}

func (d *Decoder) decodeMainFrame(r *stream.Reader, ft format.FrameType, current []int32, skipped int, raw bool) error {
	prev, hasPrev := d.mainRing.Previous()
	prev2, hasPrev2 := d.mainRing.PreviousPrevious()

	home, hasHome := d.homeRing.Current()

	ctx := &predictor.Context{
		Current:           current,
		Prev:              prev,
		HasPrev:           hasPrev,
		Prev2:             prev2,
		HasPrev2:          hasPrev2,
		Config:            &d.Config,
		MotorZeroIndex:    d.motorZeroIndex,
		HomeCoordIndex:    d.homeCoordIndex,
		HomeCoord1Index:   d.homeCoord1Index,
		HasPrevMainFrame:  d.tracker.LastMainFrameIteration != -1,
		PrevMainFrameTime: d.tracker.LastMainFrameTime,
	}
	if hasHome {
		ctx.GPSHome = home
	}

	fd := d.hdr.Frames[ft]
	def := frameFields{predictors: fd.Predictors, encodings: fd.Encodings}

	return decodeFrame(r, def, current, len(current), skipped, raw, &d.Config, ctx)
}

func (d *Decoder) decodeHomeFrame(r *stream.Reader) error {
	fd := d.hdr.Frames[format.FrameGPSHome]
	if fd.FieldCount() == 0 {
		return nil
	}

	target := d.homeRing.WriteTarget()

	ctx := &predictor.Context{Current: target, Config: &d.Config, MotorZeroIndex: -1, HomeCoordIndex: -1, HomeCoord1Index: -1}
	def := frameFields{predictors: fd.Predictors, encodings: fd.Encodings}

	return decodeFrame(r, def, target, len(target), 0, false, &d.Config, ctx)
}

func (d *Decoder) decodeGPSFrame(r *stream.Reader) error {
	fd := d.hdr.Frames[format.FrameGPS]
	if fd.FieldCount() == 0 {
		d.pendingGPSFrame = nil

		return nil
	}

	current := make([]int32, fd.FieldCount())
	home, hasHome := d.homeRing.Current()

	ctx := &predictor.Context{
		Current:         current,
		Config:          &d.Config,
		MotorZeroIndex:  -1,
		HomeCoordIndex:  d.homeCoordIndex,
		HomeCoord1Index: d.homeCoord1Index,
	}
	if hasHome {
		ctx.GPSHome = home
	}

	def := frameFields{predictors: fd.Predictors, encodings: fd.Encodings}
	if err := decodeFrame(r, def, current, len(current), 0, false, &d.Config, ctx); err != nil {
		return err
	}

	d.pendingGPSFrame = current

	return nil
}

// completeFrame finishes the previously begun frame of type ft: it runs the
// per-frame-type completion routine (spec §4.5), notifies the sink, rotates
// history, and updates stats. frameStart/size locate the frame's raw bytes
// in r's buffer for the stats digest.
func (d *Decoder) completeFrame(ft format.FrameType, frameStart, size int, r *stream.Reader, raw bool) error {
	rawBytes := r.Slice(frameStart, size)

	switch ft {
	case format.FrameIntra:
		current := d.mainRing.Current()
		prevIteration := d.tracker.LastMainFrameIteration
		iteration := int64(current[d.iterationIndex])

		valid := d.gate.AcceptIntra(current, raw)
		if valid {
			d.Stats.ObserveMainFrame(current)
			d.Stats.IntentionallyAbsentIterations += history.CountIntentionallySkippedFramesTo(prevIteration, iteration, d.Config.FrameIntervalI, d.Config.FrameIntervalPNum, d.Config.FrameIntervalPDenom)
		}

		d.Stats.RecordAccepted(ft, size, rawBytes)
		d.sink.OnFrameReady(valid, current, ft, frameStart, size)

		// An I-frame re-seeds the ring whether or not it passed the gate
		// (spec §4.4, §4.5): it is the oldest history any predictor can
		// reach, so a rejected I-frame still becomes h1/h2 going forward.
		d.mainRing.AdvanceIntra()

		return nil

	case format.FrameInter:
		current := d.mainRing.Current()

		valid := d.gate.AcceptInter(current, raw)
		if valid {
			d.Stats.ObserveMainFrame(current)
			d.Stats.IntentionallyAbsentIterations += d.tracker.LastSkippedFrames
			d.mainRing.AdvanceInter()
		}

		d.Stats.RecordAccepted(ft, size, rawBytes)
		d.sink.OnFrameReady(valid, current, ft, frameStart, size)

		return nil

	case format.FrameGPSHome:
		d.homeRing.Commit()
		d.gpsHomeIsValid = true

		home, _ := d.homeRing.Current()

		d.Stats.RecordAccepted(ft, size, rawBytes)
		d.sink.OnFrameReady(true, home, ft, frameStart, size)

		return nil

	case format.FrameGPS:
		frame := d.pendingGPSFrame
		d.pendingGPSFrame = nil

		d.Stats.RecordAccepted(ft, size, rawBytes)
		d.sink.OnFrameReady(d.gpsHomeIsValid, frame, ft, frameStart, size)

		return nil

	case format.FrameEvent:
		if d.lastEventRecognized {
			d.Stats.RecordAccepted(ft, size, rawBytes)
			d.sink.OnFrameReady(true, nil, ft, frameStart, size)
		} else {
			d.Stats.RecordDesync(ft)
			d.sink.OnFrameReady(false, nil, ft, frameStart, size)
		}

		return nil

	default:
		return fmt.Errorf("decode: unreachable frame type %v", ft)
	}
}
