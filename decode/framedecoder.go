// Package decode implements the FrameDecoder (spec §4.2), the Dispatcher
// and Resynchronizer (spec §4.5), and event-frame parsing (spec §4.6): the
// machinery that turns a header-described schema plus a byte stream into a
// sequence of fully decoded frames.
package decode

import (
	"github.com/flightlog/blackboxlog/errs"
	"github.com/flightlog/blackboxlog/format"
	"github.com/flightlog/blackboxlog/header"
	"github.com/flightlog/blackboxlog/predictor"
	"github.com/flightlog/blackboxlog/stream"
)

// frameFields bundles the three parallel vectors decodeFrame walks.
type frameFields struct {
	predictors []format.Predictor
	encodings  []format.Encoding
}

// decodeFrame is the shared routine behind every per-frame-type entry point
// (spec §4.2): it walks fields 0..fieldCount-1, reading encoded payload off
// r and writing fully decoded values into current.
//
// skipped is the number of intentionally-absent iterations immediately
// preceding this frame, used only by the INC predictor shortcut. raw, when
// true, forces every predictor except INC to NONE so the values written are
// the on-wire deltas without correction (spec §4.2 "raw mode"); INC fields
// carry no wire payload and are still computed from history. The encoding
// pipeline that recovers the deltas is unchanged.
func decodeFrame(r *stream.Reader, def frameFields, current []int32, fieldCount, skipped int, raw bool, cfg *header.SystemConfig, predCtx *predictor.Context) error {
	i := 0
	for i < fieldCount {
		pred := def.predictors[i]
		if raw {
			pred = format.PredictorNone
		}

		if def.predictors[i] == format.PredictorInc {
			prevVal := int32(0)
			if predCtx.HasPrev {
				prevVal = predCtx.Prev[i]
			}

			current[i] = prevVal + int32(skipped) + 1
			i++

			continue
		}

		enc := def.encodings[i]
		switch enc {
		case format.EncodingSignedVB:
			rawVal := r.ReadSignedVB()
			decoded, err := predictor.Apply(pred, rawVal, i, predCtx)
			if err != nil {
				return err
			}

			current[i] = decoded
			i++

		case format.EncodingUnsignedVB:
			rawVal := int32(r.ReadUnsignedVB())
			decoded, err := predictor.Apply(pred, rawVal, i, predCtx)
			if err != nil {
				return err
			}

			current[i] = decoded
			i++

		case format.EncodingNull:
			decoded, err := predictor.Apply(pred, 0, i, predCtx)
			if err != nil {
				return err
			}

			current[i] = decoded
			i++

		case format.EncodingNeg14Bit:
			rawVal := decodeNeg14Bit(r)
			decoded, err := predictor.Apply(pred, rawVal, i, predCtx)
			if err != nil {
				return err
			}

			current[i] = decoded
			i++

		case format.EncodingTag8_4S16:
			var values [4]int32
			if header.DataVersionSelectsV2(*cfg) {
				r.ReadTag8_4S16V2(&values)
			} else {
				r.ReadTag8_4S16V1(&values)
			}

			for k := 0; k < 4; k++ {
				fi := i + k
				fpred := def.predictors[fi]
				if raw {
					fpred = format.PredictorNone
				}

				decoded, err := predictor.Apply(fpred, values[k], fi, predCtx)
				if err != nil {
					return err
				}

				current[fi] = decoded
			}

			i += 4

		case format.EncodingTag2_3S32:
			var values [3]int32
			r.ReadTag2_3S32(&values)

			for k := 0; k < 3; k++ {
				fi := i + k
				fpred := def.predictors[fi]
				if raw {
					fpred = format.PredictorNone
				}

				decoded, err := predictor.Apply(fpred, values[k], fi, predCtx)
				if err != nil {
					return err
				}

				current[fi] = decoded
			}

			i += 3

		case format.EncodingTag8_8SVB:
			groupCount := tag8GroupLen(def.encodings, i, fieldCount)

			var values [8]int32
			r.ReadTag8_8SVB(values[:groupCount], groupCount)

			for k := 0; k < groupCount; k++ {
				fi := i + k
				fpred := def.predictors[fi]
				if raw {
					fpred = format.PredictorNone
				}

				decoded, err := predictor.Apply(fpred, values[k], fi, predCtx)
				if err != nil {
					return err
				}

				current[fi] = decoded
			}

			i += groupCount

		default:
			return errs.ErrUnknownEncoding
		}
	}

	return nil
}

// tag8GroupLen finds the maximal run of consecutive TAG8_8SVB fields
// starting at i, capped at 8 and at fieldCount (spec §4.2).
func tag8GroupLen(encodings []format.Encoding, i, fieldCount int) int {
	n := 0
	for i+n < fieldCount && n < 8 && encodings[i+n] == format.EncodingTag8_8SVB {
		n++
	}

	return n
}

// decodeNeg14Bit reads an unsigned varint, sign-extends it as a 14-bit
// value, then negates it (spec §4.2). The result is <= 0 when bit 13 is
// clear and positive when it is set.
func decodeNeg14Bit(r *stream.Reader) int32 {
	v := int32(r.ReadUnsignedVB() & 0x3fff)
	if v&0x2000 != 0 {
		v -= 0x4000
	}

	return -v
}
