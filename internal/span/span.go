// Package span pairs parsed bytes with the set of transcript byte
// positions that produced them.
//
// A span borrows the transcript buffer it was cut from; the buffer must
// outlive every span derived from it and is never mutated. For
// reconstructed spans (a chunked body reassembled from discontiguous
// pieces) the data is a separately owned byte sequence and its length
// may differ from the provenance set's element count.
package span

import (
	"errors"
	"unicode/utf8"

	"github.com/spantap/spantap/internal/rangeset"
)

// ErrInvalidUTF8 is returned when a string-typed span is constructed
// over bytes that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("span data is not valid UTF-8")

// Span is an immutable view of parsed data together with the transcript
// positions it came from. Offset is the only mutation and touches
// positions, never data.
type Span struct {
	data    []byte
	indices rangeset.Set
	str     bool
}

// NewBytes returns a byte-typed span over src[start:end].
func NewBytes(src []byte, start, end int) Span {
	return Span{
		data:    src[start:end],
		indices: rangeset.FromRange(rangeset.Range{Start: start, End: end}),
	}
}

// NewString returns a string-typed span over src[start:end], validating
// that the slice is UTF-8.
func NewString(src []byte, start, end int) (Span, error) {
	if !utf8.Valid(src[start:end]) {
		return Span{}, ErrInvalidUTF8
	}
	return Span{
		data:    src[start:end],
		indices: rangeset.FromRange(rangeset.Range{Start: start, End: end}),
		str:     true,
	}, nil
}

// NewReconstructed returns a span whose data was reassembled from
// discontiguous source positions. The data is owned by the span; the
// indices record where the bytes came from, not their order in data.
func NewReconstructed(data []byte, indices rangeset.Set) Span {
	return Span{data: data, indices: indices}
}

// Bytes returns the span data. The slice aliases the transcript buffer
// for spans cut directly from it and must not be modified.
func (s Span) Bytes() []byte {
	return s.data
}

// String returns the span data as a string.
func (s Span) String() string {
	return string(s.data)
}

// IsString reports whether the span was constructed as string-typed.
func (s Span) IsString() bool {
	return s.str
}

// Len returns the length of the span data in bytes.
func (s Span) Len() int {
	return len(s.data)
}

// Indices returns the set of transcript positions that produced the
// span data.
func (s Span) Indices() rangeset.Set {
	return s.indices
}

// Offset shifts every recorded position forward by delta. The data is
// untouched.
func (s *Span) Offset(delta int) {
	s.indices.Offset(delta)
}

// Without returns the span's positions with another span's positions
// removed. Used to report the structural bytes of a parent with a
// child's bytes excluded.
func (s Span) Without(other Span) rangeset.Set {
	return s.indices.Difference(other.indices)
}
