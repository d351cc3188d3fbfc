package decode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightlog/blackboxlog/decode"
	"github.com/flightlog/blackboxlog/format"
	"github.com/flightlog/blackboxlog/stream"
)

// --- varint helpers, mirroring the wire format under test ---

func uvarint(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func svarint(v int32) []byte {
	var zz uint32
	if v >= 0 {
		zz = uint32(v) * 2
	} else {
		zz = uint32(-v)*2 - 1
	}
	return uvarint(zz)
}

type recordedFrame struct {
	valid     bool
	values    []int32
	frameType format.FrameType
	offset    int
	length    int
}

func collectingSink() (*[]recordedFrame, decode.Sink) {
	var frames []recordedFrame
	sink := decode.SinkFunc(func(valid bool, frame []int32, frameType format.FrameType, byteOffset, byteLength int) {
		cp := append([]int32(nil), frame...)
		frames = append(frames, recordedFrame{valid, cp, frameType, byteOffset, byteLength})
	})
	return &frames, sink
}

const basicHeader = "H Field I name:iteration,time\n" +
	"H Field I predictor:0,0\n" +
	"H Field I encoding:1,1\n" +
	"H Field P predictor:6,10\n" +
	"H Field P encoding:1,1\n" +
	"H I interval:1\n" +
	"H P interval:1/1\n"

func newDecoder(t *testing.T, headerText string) (*decode.Decoder, *stream.Reader, *[]recordedFrame) {
	t.Helper()

	frames, sink := collectingSink()
	dec := decode.NewDecoder(sink)

	data := []byte(headerText)
	r, err := stream.NewReader(data, 0, len(data))
	require.NoError(t, err)

	require.NoError(t, dec.ParseHeader(r))

	return dec, r, frames
}

// readerWithBody builds a Reader over headerText followed by the supplied
// frame bytes, positioned at the start of the header.
func readerWithBody(t *testing.T, headerText string, body []byte) *stream.Reader {
	t.Helper()

	full := append([]byte(headerText), body...)
	r, err := stream.NewReader(full, 0, len(full))
	require.NoError(t, err)

	return r
}

func TestDecoderIAndPFrameRoundTrip(t *testing.T) {
	dec, _, frames := newDecoder(t, basicHeader)

	var body []byte
	body = append(body, 'I')
	body = append(body, uvarint(0)...)    // iteration
	body = append(body, uvarint(1000)...) // time

	body = append(body, 'P')
	// iteration: INC, no payload. time: LAST_MAIN_TIME + unsigned delta.
	body = append(body, uvarint(500)...)

	r := readerWithBody(t, basicHeader, body)
	require.NoError(t, dec.ParseHeader(r))

	ok, err := dec.ParseLogData(r, false)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, *frames, 2)
	i := (*frames)[0]
	assert.True(t, i.valid)
	assert.Equal(t, []int32{0, 1000}, i.values)

	p := (*frames)[1]
	assert.True(t, p.valid)
	assert.Equal(t, []int32{1, 1500}, p.values)

	assert.Equal(t, 1, dec.Stats.ByType[format.FrameIntra].ValidCount)
	assert.Equal(t, 1, dec.Stats.ByType[format.FrameInter].ValidCount)
	assert.Equal(t, int32(0), dec.Stats.Fields[0].Min)
	assert.Equal(t, int32(1), dec.Stats.Fields[0].Max)
}

func TestDecoderValidityGateRejectsHugeJump(t *testing.T) {
	dec, _, frames := newDecoder(t, basicHeader)

	var body []byte
	body = append(body, 'I')
	body = append(body, uvarint(0)...)
	body = append(body, uvarint(0)...)

	body = append(body, 'P')
	// iteration INC => prev(0)+skipped(0)+1 = 1, time huge jump via raw
	// delta so the gate rejects this frame.
	body = append(body, uvarint(20_000_000)...)

	r := readerWithBody(t, basicHeader, body)
	require.NoError(t, dec.ParseHeader(r))

	ok, err := dec.ParseLogData(r, false)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, *frames, 2)
	assert.True(t, (*frames)[0].valid)
	assert.False(t, (*frames)[1].valid)

	// Fields stats must not have observed the rejected frame's values.
	assert.Equal(t, int32(0), dec.Stats.Fields[1].Max)
}

func TestDecoderCorruptFrameResyncsOneByteAtATime(t *testing.T) {
	dec, _, frames := newDecoder(t, basicHeader)

	var body []byte
	body = append(body, 'I')
	body = append(body, uvarint(0)...)
	body = append(body, uvarint(0)...)

	// Garbage bytes: not a valid frame, and none of the stray bytes happen
	// to look like a recognized frame tag.
	body = append(body, 0x01, 0x02, 0x03)

	body = append(body, 'I')
	body = append(body, uvarint(1)...)
	body = append(body, uvarint(100)...)

	r := readerWithBody(t, basicHeader, body)
	require.NoError(t, dec.ParseHeader(r))

	ok, err := dec.ParseLogData(r, false)
	require.NoError(t, err)
	assert.True(t, ok)

	var sawCorrupt bool
	for _, f := range *frames {
		if !f.valid && f.values == nil {
			sawCorrupt = true
		}
	}
	assert.True(t, sawCorrupt)
	assert.Greater(t, dec.Stats.TotalCorruptFrames, 0)

	// The final well-formed I frame must still have been recovered.
	last := (*frames)[len(*frames)-1]
	assert.Equal(t, format.FrameIntra, last.frameType)
	assert.Equal(t, []int32{1, 100}, last.values)
}

func TestDecoderLogEndClampsStream(t *testing.T) {
	dec, _, frames := newDecoder(t, basicHeader)

	var body []byte
	body = append(body, 'I')
	body = append(body, uvarint(0)...)
	body = append(body, uvarint(0)...)

	body = append(body, 'E')
	body = append(body, 0xff)
	body = append(body, []byte("End of log\x00")...)

	// Trailing bytes after LOG_END must never be visited.
	body = append(body, 0xAA, 0xBB, 0xCC)

	r := readerWithBody(t, basicHeader, body)
	require.NoError(t, dec.ParseHeader(r))

	ok, err := dec.ParseLogData(r, false)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, *frames, 2)
	ev := (*frames)[1]
	assert.Equal(t, format.FrameEvent, ev.frameType)
	assert.True(t, ev.valid)

	lastEvent, has := dec.LastEvent()
	assert.True(t, has)
	assert.Equal(t, decode.EventLogEnd, lastEvent.Kind)
}

func TestDecoderUnrecognizedEventIsDesyncNotCorrupt(t *testing.T) {
	dec, _, frames := newDecoder(t, basicHeader)

	var body []byte
	body = append(body, 'E')
	body = append(body, 0x7f) // unknown event ID

	body = append(body, 'I')
	body = append(body, uvarint(0)...)
	body = append(body, uvarint(0)...)

	r := readerWithBody(t, basicHeader, body)
	require.NoError(t, dec.ParseHeader(r))

	ok, err := dec.ParseLogData(r, false)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, *frames, 2)
	assert.False(t, (*frames)[0].valid)
	assert.Equal(t, 1, dec.Stats.ByType[format.FrameEvent].DesyncCount)
	assert.Equal(t, 0, dec.Stats.ByType[format.FrameEvent].CorruptCount)
}

func TestResetStatsPreservesSchema(t *testing.T) {
	dec, _, _ := newDecoder(t, basicHeader)

	var body []byte
	body = append(body, 'I')
	body = append(body, uvarint(0)...)
	body = append(body, uvarint(0)...)

	r := readerWithBody(t, basicHeader, body)
	require.NoError(t, dec.ParseHeader(r))
	_, err := dec.ParseLogData(r, false)
	require.NoError(t, err)

	assert.Equal(t, 1, dec.Stats.ByType[format.FrameIntra].ValidCount)

	dec.ResetStats()
	assert.Equal(t, 0, dec.Stats.ByType[format.FrameIntra].ValidCount)
	assert.Equal(t, []string{"iteration", "time"}, dec.MainFieldNames)
}
