package protocol

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/spantap/spantap/internal/model"
	"github.com/spantap/spantap/internal/rangeset"
	"github.com/spantap/spantap/internal/span"
	"github.com/spantap/spantap/internal/token"
)

// ParseRequest parses one HTTP/1.1 request at the start of src.
func ParseRequest(src []byte) (*model.Request, error) {
	return parseRequestAt(src, 0)
}

// ParseResponse parses one HTTP/1.1 response at the start of src.
func ParseResponse(src []byte) (*model.Response, error) {
	return parseResponseAt(src, 0)
}

// parseRequestAt parses one request from src starting at offset. All
// spans carry absolute transcript positions.
func parseRequestAt(src []byte, offset int) (*model.Request, error) {
	head, status, err := token.ParseRequest(src[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHead, err)
	}
	if status == token.Partial {
		return nil, fmt.Errorf("%w: request head at offset %d", ErrIncomplete, offset)
	}
	headEnd := offset + head.HeadEnd

	lineSpan, err := startLineSpan(src, offset)
	if err != nil {
		return nil, err
	}

	// The tokenizer returns the method as an owned string without its
	// byte position; recover it by searching the buffer.
	methodStart, methodEnd, ok := findTokenRange(src, offset, []byte(head.Method))
	if !ok {
		return nil, fmt.Errorf("%w: method token not found in buffer", ErrMalformedHead)
	}
	methodSpan, err := span.NewString(src, methodStart, methodEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	targetSpan, err := span.NewString(src, offset+head.PathStart, offset+head.PathEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: request target: %v", ErrInvalidEncoding, err)
	}

	headers, err := buildHeaders(src, offset, head.Headers)
	if err != nil {
		return nil, err
	}

	req := &model.Request{
		Span: span.NewBytes(src, offset, headEnd),
		Line: model.RequestLine{
			Span:   lineSpan,
			Method: model.Method{Span: methodSpan},
			Target: model.Target{Span: targetSpan},
		},
		Headers:  headers,
		TotalLen: headEnd - offset,
	}

	bodyLen, te, err := requestBodyInfo(headers, src, headEnd)
	if err != nil {
		return nil, err
	}
	if te == "chunked" || bodyLen > 0 {
		body, wireLen, err := parseBody(src, headEnd, bodyLen, contentMediaType(headers), te)
		if err != nil {
			return nil, err
		}
		req.Body = body
		req.Span = messageSpan(src, offset, headEnd, wireLen, body, te)
		req.TotalLen = headEnd - offset + wireLen
	}

	return req, nil
}

// parseResponseAt parses one response from src starting at offset. All
// spans carry absolute transcript positions.
func parseResponseAt(src []byte, offset int) (*model.Response, error) {
	head, status, err := token.ParseResponse(src[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHead, err)
	}
	if status == token.Partial {
		return nil, fmt.Errorf("%w: response head at offset %d", ErrIncomplete, offset)
	}
	headEnd := offset + head.HeadEnd

	lineSpan, err := startLineSpan(src, offset)
	if err != nil {
		return nil, err
	}

	// The tokenizer does not preserve the status code's position
	// either; search for the digits. A header value that happens to
	// contain the same digits earlier cannot match because the search
	// starts at the status line.
	codeStart, codeEnd, ok := findTokenRange(src, offset, []byte(head.Code))
	if !ok {
		return nil, fmt.Errorf("%w: status code not found in buffer", ErrMalformedHead)
	}
	codeSpan, err := span.NewString(src, codeStart, codeEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	reasonSpan, err := span.NewString(src, offset+head.ReasonStart, offset+head.ReasonEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: reason phrase: %v", ErrInvalidEncoding, err)
	}

	headers, err := buildHeaders(src, offset, head.Headers)
	if err != nil {
		return nil, err
	}

	resp := &model.Response{
		Span: span.NewBytes(src, offset, headEnd),
		Status: model.Status{
			Span:   lineSpan,
			Code:   model.Code{Span: codeSpan},
			Reason: model.Reason{Span: reasonSpan},
		},
		Headers:  headers,
		TotalLen: headEnd - offset,
	}

	code, err := strconv.Atoi(head.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: status code %q", ErrMalformedHead, head.Code)
	}

	bodyLen, te, err := responseBodyInfo(code, headers, src, headEnd)
	if err != nil {
		return nil, err
	}
	if te == "chunked" || bodyLen > 0 {
		body, wireLen, err := parseBody(src, headEnd, bodyLen, contentMediaType(headers), te)
		if err != nil {
			return nil, err
		}
		resp.Body = body
		resp.Span = messageSpan(src, offset, headEnd, wireLen, body, te)
		resp.TotalLen = headEnd - offset + wireLen
	}

	return resp, nil
}

// messageSpan builds the span covering a message with a body. For a
// chunked body the logical message is discontiguous in the source, so
// the span is the union of the head positions and the reassembled
// body's positions, with the framing bytes excluded; the data is the
// head bytes followed by the reassembled payload.
func messageSpan(src []byte, offset, headEnd, wireLen int, body *model.Body, te string) span.Span {
	if te != "chunked" {
		return span.NewBytes(src, offset, headEnd+wireLen)
	}

	indices := rangeset.FromRange(rangeset.Range{Start: offset, End: headEnd})
	indices = indices.Union(body.Span.Indices())

	data := make([]byte, 0, headEnd-offset+body.Span.Len())
	data = append(data, src[offset:headEnd]...)
	data = append(data, body.Span.Bytes()...)

	return span.NewReconstructed(data, indices)
}

// startLineSpan spans the first line of the head, bounded by the first
// CRLF, which the tokenizer has already guaranteed to exist.
func startLineSpan(src []byte, offset int) (span.Span, error) {
	lineEnd := findCRLF(src, offset)
	if lineEnd < 0 {
		return span.Span{}, fmt.Errorf("%w: start line missing CRLF", ErrMalformedHead)
	}
	s, err := span.NewString(src, offset, lineEnd+2)
	if err != nil {
		return span.Span{}, fmt.Errorf("%w: start line: %v", ErrInvalidEncoding, err)
	}
	return s, nil
}

// buildHeaders converts tokenizer header ranges, relative to offset,
// into Header values with absolute positions. Each header's span runs
// from its name through the line's CRLF, covering any whitespace around
// the value.
func buildHeaders(src []byte, offset int, ranges []token.HeaderRange) ([]model.Header, error) {
	headers := make([]model.Header, 0, len(ranges))
	for _, hr := range ranges {
		nameStart := offset + hr.NameStart
		valueEnd := offset + hr.ValueEnd

		crlf := findCRLF(src, valueEnd)
		if crlf < 0 {
			return nil, fmt.Errorf("%w: header line missing CRLF", ErrMalformedHead)
		}

		nameSpan, err := span.NewString(src, nameStart, offset+hr.NameEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: header name: %v", ErrInvalidEncoding, err)
		}

		headers = append(headers, model.Header{
			Span:  span.NewBytes(src, nameStart, crlf+2),
			Name:  model.HeaderName{Span: nameSpan},
			Value: model.HeaderValue{Span: span.NewBytes(src, offset+hr.ValueStart, valueEnd)},
		})
	}
	return headers, nil
}

// findTokenRange locates the first exact byte-pattern match of tok at
// or after offset.
//
// Precondition: tok is a token that first occurs in src at its own
// definition site. This holds for the request method (it opens the
// head) and for the status code as searched from the status line, but a
// caller searching from an earlier offset could over-match a
// coincidental occurrence inside preceding bytes.
func findTokenRange(src []byte, offset int, tok []byte) (int, int, bool) {
	i := bytes.Index(src[offset:], tok)
	if i < 0 {
		return 0, 0, false
	}
	return offset + i, offset + i + len(tok), true
}
