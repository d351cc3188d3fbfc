package header

import "github.com/flightlog/blackboxlog/format"

// FrameDef is the parallel-vector schema for one frame-type tag (spec §3).
// For I and P frames, Names, Predictors and Encodings must all be present
// and of equal length before decoding begins; G and H frames are optional.
type FrameDef struct {
	Names      []string
	Predictors []format.Predictor
	Encodings  []format.Encoding
	Signed     []bool // optional; only populated for the I frame definition

	// NameToIndex maps a field name to its position in Names. It is
	// derived once, after header parsing completes.
	NameToIndex map[string]int
}

// FieldCount returns the number of fields declared in this definition.
func (d *FrameDef) FieldCount() int {
	if d == nil {
		return 0
	}

	return len(d.Names)
}

// HasPredictorsAndEncodings reports whether both parallel vectors were
// populated from the header, matching the counted field names.
func (d *FrameDef) HasPredictorsAndEncodings() bool {
	if d == nil {
		return false
	}

	return len(d.Predictors) == len(d.Names) && len(d.Encodings) == len(d.Names) && len(d.Names) > 0
}

// IndexOf returns the index of name within the definition, or -1 if absent.
func (d *FrameDef) IndexOf(name string) int {
	if d == nil {
		return -1
	}

	idx, ok := d.NameToIndex[name]
	if !ok {
		return -1
	}

	return idx
}

func (d *FrameDef) buildNameToIndex() {
	d.NameToIndex = make(map[string]int, len(d.Names))
	for i, name := range d.Names {
		d.NameToIndex[name] = i
	}
}
