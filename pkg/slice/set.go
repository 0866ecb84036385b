package slice

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

// Set holds every slice for one edge position, indexed by leaf.
type Set struct {
	Position Position
	Raw      []*image.NRGBA
	Masked   []*image.NRGBA

	// Average is the mean source colour, used for placeholders.
	Average color.NRGBA
}

// Len returns the number of leaves the set covers.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Raw)
}

// Slice returns the slice for leaf. ok is false when leaf is out of range.
func (s *Set) Slice(leaf int, masked bool) (img *image.NRGBA, ok bool) {
	if s == nil || leaf < 0 || leaf >= len(s.Raw) {
		return nil, false
	}
	if masked && leaf < len(s.Masked) && s.Masked[leaf] != nil {
		return s.Masked[leaf], true
	}
	if s.Raw[leaf] == nil {
		return nil, false
	}
	return s.Raw[leaf], true
}

// encodedSet is the cache form of a Set: every slice as PNG bytes.
type encodedSet struct {
	Position Position `json:"position"`
	Average  [4]uint8 `json:"average"`
	Raw      [][]byte `json:"raw"`
	Masked   [][]byte `json:"masked,omitempty"`
	Shared   bool     `json:"shared,omitempty"`
}

// MarshalBinary encodes the set as JSON with PNG slices. When the masked
// variant is the raw one, it is not stored twice.
func (s *Set) MarshalBinary() ([]byte, error) {
	enc := encodedSet{
		Position: s.Position,
		Average:  [4]uint8{s.Average.R, s.Average.G, s.Average.B, s.Average.A},
		Shared:   sameSlices(s.Raw, s.Masked),
	}

	var err error
	if enc.Raw, err = encodeAll(s.Raw); err != nil {
		return nil, err
	}
	if !enc.Shared {
		if enc.Masked, err = encodeAll(s.Masked); err != nil {
			return nil, err
		}
	}
	return json.Marshal(enc)
}

// UnmarshalSet decodes a set produced by MarshalBinary.
func UnmarshalSet(data []byte) (*Set, error) {
	var enc encodedSet
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode slice set")
	}

	s := &Set{
		Position: enc.Position,
		Average:  color.NRGBA{R: enc.Average[0], G: enc.Average[1], B: enc.Average[2], A: enc.Average[3]},
	}
	var err error
	if s.Raw, err = decodeAll(enc.Raw); err != nil {
		return nil, err
	}
	if enc.Shared {
		s.Masked = s.Raw
	} else if s.Masked, err = decodeAll(enc.Masked); err != nil {
		return nil, err
	}
	if len(s.Masked) != len(s.Raw) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"slice set has %d raw and %d masked slices", len(s.Raw), len(s.Masked))
	}
	return s, nil
}

func sameSlices(a, b []*image.NRGBA) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func encodeAll(imgs []*image.NRGBA) ([][]byte, error) {
	out := make([][]byte, len(imgs))
	for i, img := range imgs {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode slice").WithLeaf(i)
		}
		out[i] = buf.Bytes()
	}
	return out, nil
}

func decodeAll(data [][]byte) ([]*image.NRGBA, error) {
	out := make([]*image.NRGBA, len(data))
	for i, b := range data {
		img, err := png.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode slice").WithLeaf(i)
		}
		out[i] = FromImage(img).Image()
	}
	return out, nil
}
