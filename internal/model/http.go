// Package model defines the span-annotated HTTP message types.
//
// Every entity pairs its materialized value with the transcript byte
// positions that produced it, so callers can disclose or redact
// selected parts of a message by byte range. Entities are built once by
// the parser and are immutable afterwards, except for Offset, which
// re-bases positions when a message parsed from an extracted slice is
// spliced back into a larger transcript.
package model

import (
	"strings"

	"github.com/spantap/spantap/internal/jsonspan"
	"github.com/spantap/spantap/internal/rangeset"
	"github.com/spantap/spantap/internal/span"
)

// Method is an HTTP request method.
type Method struct {
	Span span.Span
}

// String returns the method as a string.
func (m Method) String() string {
	return m.Span.String()
}

// Target is an HTTP request target.
type Target struct {
	Span span.Span
}

// String returns the target as a string.
func (t Target) String() string {
	return t.Span.String()
}

// RequestLine is an HTTP request line, including the trailing CRLF. Its
// span fully contains the method and target spans.
type RequestLine struct {
	Span   span.Span
	Method Method
	Target Target
}

// WithoutTarget returns the positions of the request line with the
// target's positions excluded.
func (l RequestLine) WithoutTarget() rangeset.Set {
	return l.Span.Without(l.Target.Span)
}

// Offset shifts every position in the request line by delta.
func (l *RequestLine) Offset(delta int) {
	l.Span.Offset(delta)
	l.Method.Span.Offset(delta)
	l.Target.Span.Offset(delta)
}

// Code is an HTTP response status code.
type Code struct {
	Span span.Span
}

// String returns the code as a string.
func (c Code) String() string {
	return c.Span.String()
}

// Reason is an HTTP response reason phrase.
type Reason struct {
	Span span.Span
}

// String returns the reason phrase as a string.
func (r Reason) String() string {
	return r.Span.String()
}

// Status is an HTTP status line, including the trailing CRLF. Its span
// fully contains the code and reason spans.
type Status struct {
	Span   span.Span
	Code   Code
	Reason Reason
}

// Offset shifts every position in the status line by delta.
func (s *Status) Offset(delta int) {
	s.Span.Offset(delta)
	s.Code.Span.Offset(delta)
	s.Reason.Span.Offset(delta)
}

// HeaderName is a header field name. Names compare case-insensitively.
type HeaderName struct {
	Span span.Span
}

// String returns the header name as a string.
func (n HeaderName) String() string {
	return n.Span.String()
}

// EqualFold reports whether the name matches s case-insensitively.
func (n HeaderName) EqualFold(s string) bool {
	return strings.EqualFold(n.Span.String(), s)
}

// HeaderValue is a header field value, trimmed of surrounding
// horizontal whitespace.
type HeaderValue struct {
	Span span.Span
}

// Bytes returns the value bytes.
func (v HeaderValue) Bytes() []byte {
	return v.Span.Bytes()
}

// Header is one header field. Its span covers the entire header line,
// including optional whitespace around the value and the trailing CRLF.
type Header struct {
	Span  span.Span
	Name  HeaderName
	Value HeaderValue
}

// WithoutValue returns the positions of the header line with the
// value's positions excluded. Whitespace and the CRLF remain included.
func (h Header) WithoutValue() rangeset.Set {
	return h.Span.Without(h.Value.Span)
}

// Offset shifts every position in the header by delta.
func (h *Header) Offset(delta int) {
	h.Span.Offset(delta)
	h.Name.Span.Offset(delta)
	h.Value.Span.Offset(delta)
}

// Request is a parsed HTTP request.
type Request struct {
	// Span covers the message bytes. For a chunked body its positions
	// are the union of the head range and the chunk payload positions,
	// excluding chunk framing; TotalLen always covers the full on-wire
	// extent.
	Span    span.Span
	Line    RequestLine
	Headers []Header
	Body    *Body

	// TotalLen is the exact number of transcript bytes the request
	// occupies on the wire, including chunk framing.
	TotalLen int
}

// HeadersWithName returns all headers matching name case-insensitively,
// in encounter order. Duplicate header names are legal.
func (r *Request) HeadersWithName(name string) []*Header {
	return headersWithName(r.Headers, name)
}

// WithoutData returns the positions of the request excluding the
// target, headers and body: the structural bytes only.
func (r *Request) WithoutData() rangeset.Set {
	indices := r.Span.Indices().Difference(r.Line.Target.Span.Indices())
	for i := range r.Headers {
		indices = indices.Difference(r.Headers[i].Span.Indices())
	}
	if r.Body != nil {
		indices = indices.Difference(r.Body.Span.Indices())
	}
	return indices
}

// Offset shifts every position in the request by delta.
func (r *Request) Offset(delta int) {
	r.Span.Offset(delta)
	r.Line.Offset(delta)
	for i := range r.Headers {
		r.Headers[i].Offset(delta)
	}
	if r.Body != nil {
		r.Body.Offset(delta)
	}
}

// Response is a parsed HTTP response.
type Response struct {
	// Span covers the message bytes. For a chunked body its positions
	// are the union of the head range and the chunk payload positions,
	// excluding chunk framing; TotalLen always covers the full on-wire
	// extent.
	Span    span.Span
	Status  Status
	Headers []Header
	Body    *Body

	// TotalLen is the exact number of transcript bytes the response
	// occupies on the wire, including chunk framing.
	TotalLen int
}

// HeadersWithName returns all headers matching name case-insensitively,
// in encounter order. Duplicate header names are legal.
func (r *Response) HeadersWithName(name string) []*Header {
	return headersWithName(r.Headers, name)
}

// WithoutData returns the positions of the response excluding headers
// and body.
func (r *Response) WithoutData() rangeset.Set {
	indices := r.Span.Indices()
	for i := range r.Headers {
		indices = indices.Difference(r.Headers[i].Span.Indices())
	}
	if r.Body != nil {
		indices = indices.Difference(r.Body.Span.Indices())
	}
	return indices
}

// Offset shifts every position in the response by delta.
func (r *Response) Offset(delta int) {
	r.Span.Offset(delta)
	r.Status.Offset(delta)
	for i := range r.Headers {
		r.Headers[i].Offset(delta)
	}
	if r.Body != nil {
		r.Body.Offset(delta)
	}
}

func headersWithName(headers []Header, name string) []*Header {
	var out []*Header
	for i := range headers {
		if headers[i].Name.EqualFold(name) {
			out = append(out, &headers[i])
		}
	}
	return out
}

// Body is a message payload body. For a chunked body the span is the
// reassembled logical body: its data is the concatenated chunk payloads
// and its positions are the union of the chunk payload positions.
type Body struct {
	Span    span.Span
	Content BodyContent
}

// Offset shifts every position in the body by delta.
func (b *Body) Offset(delta int) {
	b.Span.Offset(delta)
	if b.Content != nil {
		b.Content.Offset(delta)
	}
}

// BodyContent is the typed payload of a Body: JSON, chunked, or
// unknown.
type BodyContent interface {
	// ContentSpan returns the span covering the content.
	ContentSpan() span.Span
	// Offset shifts every position in the content by delta.
	Offset(delta int)
}

// JSONBody is a body with an application/json content type.
type JSONBody struct {
	Value *jsonspan.Value
}

// ContentSpan returns the span of the JSON value.
func (b *JSONBody) ContentSpan() span.Span {
	return b.Value.Span()
}

// Offset shifts every position in the JSON tree by delta.
func (b *JSONBody) Offset(delta int) {
	b.Value.Offset(delta)
}

// UnknownBody is a body with an unrecognized content type, carried as
// raw bytes.
type UnknownBody struct {
	Data span.Span
}

// ContentSpan returns the span of the raw bytes.
func (b *UnknownBody) ContentSpan() span.Span {
	return b.Data
}

// Offset shifts every position in the body by delta.
func (b *UnknownBody) Offset(delta int) {
	b.Data.Offset(delta)
}

// Chunk is one chunk of a chunked transfer coding.
type Chunk struct {
	// Span covers the chunk payload bytes, excluding the size line and
	// framing CRLFs.
	Span span.Span
	// Data is the raw payload bytes.
	Data []byte
	// Extension spans the chunk extension after the size, if any.
	Extension *span.Span
}

// Offset shifts every position in the chunk by delta.
func (c *Chunk) Offset(delta int) {
	c.Span.Offset(delta)
	if c.Extension != nil {
		c.Extension.Offset(delta)
	}
}

// ChunkedBody is a body sent with Transfer-Encoding chunked.
type ChunkedBody struct {
	Chunks []Chunk
	// Combined is the reassembled body: data in chunk order, positions
	// the union of every chunk's positions.
	Combined span.Span
}

// NewChunkedBody builds a ChunkedBody from chunks in wire order.
//
// The combined span's positions are the set union of the chunk
// positions while its data is the concatenation of the payloads in
// chunk order. The two orders can differ if an encoder emits
// out-of-order provenance; logical order wins for data, positions stay
// purely positional.
func NewChunkedBody(chunks []Chunk) *ChunkedBody {
	var indices rangeset.Set
	var size int
	for i := range chunks {
		indices = indices.Union(chunks[i].Span.Indices())
		size += len(chunks[i].Data)
	}

	data := make([]byte, 0, size)
	for i := range chunks {
		data = append(data, chunks[i].Data...)
	}

	return &ChunkedBody{
		Chunks:   chunks,
		Combined: span.NewReconstructed(data, indices),
	}
}

// ContentSpan returns the reassembled body span.
func (b *ChunkedBody) ContentSpan() span.Span {
	return b.Combined
}

// Offset shifts every position in every chunk and the combined span by
// delta.
func (b *ChunkedBody) Offset(delta int) {
	for i := range b.Chunks {
		b.Chunks[i].Offset(delta)
	}
	b.Combined.Offset(delta)
}
