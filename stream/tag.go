package stream

// Tag-encoded group reads. Each group is prefixed by one or more header
// bytes whose bit fields select, per member of the group, how many payload
// bytes follow. These are the multi-value tag-encoded group reads spec §6
// assigns to the ByteStream collaborator.

// ReadTag8_4S16V1 reads four signed 16-bit values using the v1 layout
// selected when the header's "Data version" is below 2 (spec §4.2).
//
// Layout: one tag byte holding four 2-bit selectors (least significant
// first), one per output value:
//
//	0 -> value is 0, no payload byte
//	1 -> 4-bit signed nibble; two consecutive nibble-selected fields share
//	     a single payload byte (first field in the low nibble, second in
//	     the high nibble) -- this pairwise sharing is the source of the v1
//	     vs v2 split, since v1 can desynchronize when an odd number of
//	     nibble fields precede a byte/word field.
//	2 -> 1 payload byte, sign-extended
//	3 -> 2 payload bytes, little-endian, sign-extended
func (r *Reader) ReadTag8_4S16V1(out *[4]int32) {
	tag := r.ReadByte()

	var pendingNibble bool
	var nibbleByte byte

	for i := 0; i < 4; i++ {
		selector := (tag >> uint(i*2)) & 0x03
		switch selector {
		case 0:
			out[i] = 0
		case 1:
			if pendingNibble {
				out[i] = signExtendNibble(nibbleByte >> 4)
				pendingNibble = false
			} else {
				nibbleByte = r.ReadByte()
				out[i] = signExtendNibble(nibbleByte & 0x0f)
				pendingNibble = true
			}
		case 2:
			out[i] = int32(r.ReadS8())
		case 3:
			out[i] = int32(r.ReadS16())
		}
	}
}

// ReadTag8_4S16V2 reads four signed 16-bit values using the v2 layout
// selected when "Data version" is 2 or above. Identical selector table to
// v1 except selector 1 always consumes its own dedicated byte instead of
// sharing a nibble with a neighbor.
func (r *Reader) ReadTag8_4S16V2(out *[4]int32) {
	tag := r.ReadByte()

	for i := 0; i < 4; i++ {
		selector := (tag >> uint(i*2)) & 0x03
		switch selector {
		case 0:
			out[i] = 0
		case 1:
			out[i] = signExtendNibble(r.ReadByte() & 0x0f)
		case 2:
			out[i] = int32(r.ReadS8())
		case 3:
			out[i] = int32(r.ReadS16())
		}
	}
}

// ReadTag2_3S32 reads three signed 32-bit values. One tag byte holds three
// 2-bit selectors (least significant first):
//
//	0 -> value is 0
//	1 -> 1 payload byte, sign-extended
//	2 -> 2 payload bytes, little-endian, sign-extended
//	3 -> 4 payload bytes, little-endian, full width
func (r *Reader) ReadTag2_3S32(out *[3]int32) {
	tag := r.ReadByte()

	for i := 0; i < 3; i++ {
		selector := (tag >> uint(i*2)) & 0x03
		switch selector {
		case 0:
			out[i] = 0
		case 1:
			out[i] = int32(r.ReadS8())
		case 2:
			out[i] = int32(r.ReadS16())
		case 3:
			b0 := uint32(r.ReadByte())
			b1 := uint32(r.ReadByte())
			b2 := uint32(r.ReadByte())
			b3 := uint32(r.ReadByte())
			out[i] = int32(b0 | b1<<8 | b2<<16 | b3<<24)
		}
	}
}

// ReadTag8_8SVB reads up to 8 ZigZag+varint-encoded signed values. One tag
// byte holds one presence bit per field (least significant bit first, bit
// set means "non-zero, a varint follows"); fields whose bit is clear decode
// to 0 with no payload byte.
func (r *Reader) ReadTag8_8SVB(out []int32, n int) {
	tag := r.ReadByte()

	for i := 0; i < n; i++ {
		if tag&(1<<uint(i)) != 0 {
			out[i] = r.ReadSignedVB()
		} else {
			out[i] = 0
		}
	}
}

func signExtendNibble(n byte) int32 {
	v := int32(n)
	if v&0x08 != 0 {
		v |= ^int32(0x0f)
	}

	return v
}
