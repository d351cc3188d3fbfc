// Package digest provides a running xxHash64 fingerprint over accepted
// frame bytes, mirroring the role github.com/arloliu/mebo/internal/hash
// plays for metric-name verification: a fast, allocation-light way to
// assert "the same bytes decoded the same way" (spec §8, testable
// properties #5 and #9) without diffing whole frame slices.
package digest

import "github.com/cespare/xxhash/v2"

// FrameDigest accumulates bytes from every accepted frame in file order.
type FrameDigest struct {
	h *xxhash.Digest
}

// New returns an empty FrameDigest.
func New() *FrameDigest {
	return &FrameDigest{h: xxhash.New()}
}

// Write feeds the raw bytes of one accepted frame into the running digest.
func (d *FrameDigest) Write(b []byte) {
	_, _ = d.h.Write(b) // xxhash.Digest.Write never returns an error
}

// Sum64 returns the digest of all bytes written so far.
func (d *FrameDigest) Sum64() uint64 {
	return d.h.Sum64()
}

// Reset clears the accumulated digest back to its initial state.
func (d *FrameDigest) Reset() {
	d.h.Reset()
}
