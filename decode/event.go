package decode

import "github.com/flightlog/blackboxlog/stream"

// EventKind tags the LastEvent union (spec §3 "Last-event record").
type EventKind int

const (
	EventSyncBeep EventKind = iota
	EventAutotuneCycleStart
	EventAutotuneCycleResult
	EventAutotuneTargets
	EventLogEnd
)

const (
	eventIDSyncBeep            = 0x00
	eventIDAutotuneCycleStart  = 0x10
	eventIDAutotuneCycleResult = 0x11
	eventIDAutotuneTargets     = 0x12
	eventIDLogEnd              = 0xFF
)

// logEndLiteral is the exact 11-byte marker a LOG_END event must carry to
// be accepted (spec §4.6, S6).
const logEndLiteral = "End of log\x00"

// SyncBeep is the payload of a SYNC_BEEP event.
type SyncBeep struct {
	Time uint32
}

// AutotuneCycleStart is the payload of an AUTOTUNE_CYCLE_START event.
type AutotuneCycleStart struct {
	Phase  int8
	Cycle  int8
	Rising bool
	P, I, D int8
}

// AutotuneCycleResult is the payload of an AUTOTUNE_CYCLE_RESULT event.
type AutotuneCycleResult struct {
	Overshot bool
	P, I, D  int8
}

// AutotuneTargets is the payload of an AUTOTUNE_TARGETS event. Angles are
// reported in degrees, having been divided down from on-wire decidegrees
// (spec §4.6).
type AutotuneTargets struct {
	CurrentAngle     float64
	TargetAngle      int8
	TargetAngleAtPeak int8
	FirstPeakAngle   float64
	SecondPeakAngle  float64
}

// Event is the tagged union over recognized event kinds (spec §3).
type Event struct {
	Kind                EventKind
	SyncBeep            SyncBeep
	AutotuneCycleStart  AutotuneCycleStart
	AutotuneCycleResult AutotuneCycleResult
	AutotuneTargets     AutotuneTargets
}

// ParseEvent reads one event frame's payload (spec §4.6). It returns the
// populated event and true if the event type was recognized and its
// payload fully read, or false if the event ID was unknown or (for
// LOG_END) the literal didn't match -- either case is a no-op that
// contributes to desyncCount rather than corruption (spec §7).
//
// When a LOG_END event matches exactly, ParseEvent clamps r's readable
// window to the frame's end via r.SetEnd, terminating the parse even if
// further bytes remain in the caller's buffer (spec §4.6, S6).
func ParseEvent(r *stream.Reader) (Event, bool) {
	id := r.ReadByte()

	switch id {
	case eventIDSyncBeep:
		return Event{Kind: EventSyncBeep, SyncBeep: SyncBeep{Time: r.ReadUnsignedVB()}}, true

	case eventIDAutotuneCycleStart:
		phase := r.ReadS8()
		cycleAndRising := r.ReadByte()
		p := r.ReadS8()
		i := r.ReadS8()
		d := r.ReadS8()

		return Event{
			Kind: EventAutotuneCycleStart,
			AutotuneCycleStart: AutotuneCycleStart{
				Phase:  phase,
				Cycle:  int8(cycleAndRising & 0x7f),
				Rising: cycleAndRising&0x80 != 0,
				P:      p,
				I:      i,
				D:      d,
			},
		}, true

	case eventIDAutotuneCycleResult:
		overshot := r.ReadByte()
		p := r.ReadS8()
		i := r.ReadS8()
		d := r.ReadS8()

		return Event{
			Kind: EventAutotuneCycleResult,
			AutotuneCycleResult: AutotuneCycleResult{
				Overshot: overshot != 0,
				P:        p,
				I:        i,
				D:        d,
			},
		}, true

	case eventIDAutotuneTargets:
		currentAngle := r.ReadS16()
		targetAngle := r.ReadS8()
		targetAngleAtPeak := r.ReadS8()
		firstPeakAngle := r.ReadS16()
		secondPeakAngle := r.ReadS16()

		return Event{
			Kind: EventAutotuneTargets,
			AutotuneTargets: AutotuneTargets{
				CurrentAngle:      float64(currentAngle) / 10,
				TargetAngle:       targetAngle,
				TargetAngleAtPeak: targetAngleAtPeak,
				FirstPeakAngle:    float64(firstPeakAngle) / 10,
				SecondPeakAngle:   float64(secondPeakAngle) / 10,
			},
		}, true

	case eventIDLogEnd:
		literal := r.ReadString(len(logEndLiteral))
		if string(literal) != logEndLiteral {
			return Event{}, false
		}

		r.SetEnd(r.Pos)

		return Event{Kind: EventLogEnd}, true

	default:
		return Event{}, false
	}
}
