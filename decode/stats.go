package decode

import (
	"github.com/flightlog/blackboxlog/format"
	"github.com/flightlog/blackboxlog/internal/digest"
)

// FieldStat is the lazily-initialized per-field min/max bound (spec §3,
// §8 testable property #7).
type FieldStat struct {
	Min         int32
	Max         int32
	Initialized bool
}

// Observe folds value into the running min/max, initializing on first
// observation.
func (s *FieldStat) Observe(value int32) {
	if !s.Initialized {
		s.Min, s.Max = value, value
		s.Initialized = true

		return
	}

	if value < s.Min {
		s.Min = value
	}

	if value > s.Max {
		s.Max = value
	}
}

// FrameTypeStats accumulates per-frame-type counters (spec §3). DesyncCount
// is zero-initialized alongside the others rather than left to implicitly
// materialize on first write (spec §9, open question).
type FrameTypeStats struct {
	Bytes        int
	SizeCount    [256]int
	ValidCount   int
	CorruptCount int
	DesyncCount  int
}

// Stats is the StatsCollector's accumulated state (spec §3 "Stats").
type Stats struct {
	TotalBytes                    int
	TotalCorruptFrames            int
	IntentionallyAbsentIterations int

	Fields     []FieldStat
	ByType     map[format.FrameType]*FrameTypeStats
	digest     *digest.FrameDigest
}

// NewStats allocates a Stats sized for mainFieldCount fields.
func NewStats(mainFieldCount int) *Stats {
	s := &Stats{
		Fields: make([]FieldStat, mainFieldCount),
		ByType: make(map[format.FrameType]*FrameTypeStats),
		digest: digest.New(),
	}

	for _, t := range []format.FrameType{format.FrameIntra, format.FrameInter, format.FrameGPS, format.FrameGPSHome, format.FrameEvent} {
		s.ByType[t] = &FrameTypeStats{}
	}

	return s
}

// Reset clears all counters in place, keeping the Fields slice's length
// (schema is untouched by resetStats, spec §6).
func (s *Stats) Reset() {
	for i := range s.Fields {
		s.Fields[i] = FieldStat{}
	}

	for t := range s.ByType {
		s.ByType[t] = &FrameTypeStats{}
	}

	s.TotalBytes = 0
	s.TotalCorruptFrames = 0
	s.IntentionallyAbsentIterations = 0
	s.digest.Reset()
}

// ObserveMainFrame folds every field of an accepted main frame into the
// per-field min/max stats.
func (s *Stats) ObserveMainFrame(frame []int32) {
	for i, v := range frame {
		if i >= len(s.Fields) {
			break
		}

		s.Fields[i].Observe(v)
	}
}

// RecordAccepted records a frame whose completion routine accepted it. For
// I and P frames this includes frames the ValidityGate rejected; for E
// frames it means the event was recognized.
func (s *Stats) RecordAccepted(frameType format.FrameType, size int, raw []byte) {
	ts := s.ByType[frameType]
	ts.Bytes += size
	if size >= 0 && size < len(ts.SizeCount) {
		ts.SizeCount[size]++
	}

	ts.ValidCount++

	s.TotalBytes += size
	s.digest.Write(raw)
}

// RecordDesync records a frame whose completion routine explicitly
// rejected it (spec §4.5: event frames with an unrecognized payload).
func (s *Stats) RecordDesync(frameType format.FrameType) {
	s.ByType[frameType].DesyncCount++
}

// RecordCorrupt records a frame that exceeded the maximum frame length or
// whose successor tag was unrecognized while not at clean EOF (spec §7).
func (s *Stats) RecordCorrupt(frameType format.FrameType) {
	s.ByType[frameType].CorruptCount++
	s.TotalCorruptFrames++
}

// StreamDigest returns the running xxHash64 fingerprint of every accepted
// frame's raw bytes, in file order (spec §8 testable properties #5, #9).
func (s *Stats) StreamDigest() uint64 {
	return s.digest.Sum64()
}
