// Package token provides a low-level HTTP/1.1 head tokenizer.
//
// The tokenizer locates one request-line or status-line plus header
// block terminated by an empty line. Header names and values are
// reported as byte ranges into the input buffer. The method and the
// numeric status code are reported as owned strings only, without byte
// positions; callers that need their positions must recover them from
// the buffer themselves.
package token

import (
	"errors"
	"fmt"
)

// MaxHeaders is the fixed header capacity. A head with more headers is
// rejected outright rather than retried with more capacity.
const MaxHeaders = 128

// Tokenizer errors.
var (
	ErrMalformed      = errors.New("malformed message head")
	ErrTooManyHeaders = errors.New("too many headers")
)

// Status reports whether a complete head was found in the buffer.
type Status int

// Tokenization outcomes.
const (
	// Complete means a full head, including the terminating empty
	// line, is present.
	Complete Status = iota
	// Partial means the buffer ended before the head did.
	Partial
)

// HeaderRange locates one header's name and value in the buffer. The
// value range excludes surrounding horizontal whitespace.
type HeaderRange struct {
	NameStart, NameEnd   int
	ValueStart, ValueEnd int
}

// RequestHead is the tokenized form of a request head.
type RequestHead struct {
	// Method is an owned copy of the method token. Its byte position
	// is not preserved.
	Method string
	// PathStart and PathEnd locate the request target.
	PathStart, PathEnd int
	// HeadEnd is the offset of the first byte after the head.
	HeadEnd int
	// Headers in encounter order.
	Headers []HeaderRange
}

// ResponseHead is the tokenized form of a response head.
type ResponseHead struct {
	// Code is an owned copy of the status code digits. Its byte
	// position is not preserved.
	Code string
	// ReasonStart and ReasonEnd locate the reason phrase.
	ReasonStart, ReasonEnd int
	// HeadEnd is the offset of the first byte after the head.
	HeadEnd int
	// Headers in encounter order.
	Headers []HeaderRange
}

// ParseRequest tokenizes a request head at the start of buf.
func ParseRequest(buf []byte) (RequestHead, Status, error) {
	var head RequestHead

	lineEnd, ok := findCRLF(buf, 0)
	if !ok {
		return head, Partial, nil
	}

	methodEnd := indexByte(buf, 0, lineEnd, ' ')
	if methodEnd < 0 || methodEnd == 0 {
		return head, Complete, fmt.Errorf("%w: missing method", ErrMalformed)
	}
	if !isToken(buf[:methodEnd]) {
		return head, Complete, fmt.Errorf("%w: invalid method", ErrMalformed)
	}

	pathStart := methodEnd + 1
	pathEnd := indexByte(buf, pathStart, lineEnd, ' ')
	if pathEnd < 0 || pathEnd == pathStart {
		return head, Complete, fmt.Errorf("%w: missing request target", ErrMalformed)
	}

	if !isHTTP1Version(buf[pathEnd+1 : lineEnd]) {
		return head, Complete, fmt.Errorf("%w: invalid HTTP version", ErrMalformed)
	}

	headers, headEnd, status, err := parseHeaders(buf, lineEnd+2)
	if err != nil || status == Partial {
		return head, status, err
	}

	head = RequestHead{
		Method:    string(buf[:methodEnd]),
		PathStart: pathStart,
		PathEnd:   pathEnd,
		HeadEnd:   headEnd,
		Headers:   headers,
	}
	return head, Complete, nil
}

// ParseResponse tokenizes a response head at the start of buf.
func ParseResponse(buf []byte) (ResponseHead, Status, error) {
	var head ResponseHead

	lineEnd, ok := findCRLF(buf, 0)
	if !ok {
		return head, Partial, nil
	}

	versionEnd := indexByte(buf, 0, lineEnd, ' ')
	if versionEnd < 0 || !isHTTP1Version(buf[:versionEnd]) {
		return head, Complete, fmt.Errorf("%w: invalid HTTP version", ErrMalformed)
	}

	codeStart := versionEnd + 1
	codeEnd := codeStart + 3
	if codeEnd > lineEnd || !isDigits(buf[codeStart:codeEnd]) {
		return head, Complete, fmt.Errorf("%w: missing status code", ErrMalformed)
	}

	// The reason phrase may be empty, but the separating space is
	// required when one is present.
	reasonStart, reasonEnd := codeEnd, codeEnd
	if codeEnd < lineEnd {
		if buf[codeEnd] != ' ' {
			return head, Complete, fmt.Errorf("%w: missing reason phrase separator", ErrMalformed)
		}
		reasonStart = codeEnd + 1
		reasonEnd = lineEnd
	}

	headers, headEnd, status, err := parseHeaders(buf, lineEnd+2)
	if err != nil || status == Partial {
		return head, status, err
	}

	head = ResponseHead{
		Code:        string(buf[codeStart:codeEnd]),
		ReasonStart: reasonStart,
		ReasonEnd:   reasonEnd,
		HeadEnd:     headEnd,
		Headers:     headers,
	}
	return head, Complete, nil
}

// parseHeaders tokenizes header lines starting at pos until the empty
// line. Returns the headers, the offset after the empty line, and the
// completion status.
func parseHeaders(buf []byte, pos int) ([]HeaderRange, int, Status, error) {
	var headers []HeaderRange

	for {
		lineEnd, ok := findCRLF(buf, pos)
		if !ok {
			return nil, 0, Partial, nil
		}

		if lineEnd == pos {
			// Empty line: end of head.
			return headers, lineEnd + 2, Complete, nil
		}

		if len(headers) == MaxHeaders {
			return nil, 0, Complete, fmt.Errorf("%w: more than %d headers", ErrTooManyHeaders, MaxHeaders)
		}

		if buf[pos] == ' ' || buf[pos] == '\t' {
			return nil, 0, Complete, fmt.Errorf("%w: obsolete line folding", ErrMalformed)
		}

		colon := indexByte(buf, pos, lineEnd, ':')
		if colon < 0 || colon == pos {
			return nil, 0, Complete, fmt.Errorf("%w: header line missing name", ErrMalformed)
		}
		if !isToken(buf[pos:colon]) {
			return nil, 0, Complete, fmt.Errorf("%w: invalid header name", ErrMalformed)
		}

		// Trim optional whitespace off both ends of the value so the
		// reported range covers the value bytes only.
		valueStart, valueEnd := colon+1, lineEnd
		for valueStart < valueEnd && (buf[valueStart] == ' ' || buf[valueStart] == '\t') {
			valueStart++
		}
		for valueEnd > valueStart && (buf[valueEnd-1] == ' ' || buf[valueEnd-1] == '\t') {
			valueEnd--
		}

		headers = append(headers, HeaderRange{
			NameStart:  pos,
			NameEnd:    colon,
			ValueStart: valueStart,
			ValueEnd:   valueEnd,
		})
		pos = lineEnd + 2
	}
}

// findCRLF returns the offset of the next CRLF at or after pos.
func findCRLF(buf []byte, pos int) (int, bool) {
	for i := pos; i+1 < len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' {
			return i, true
		}
	}
	return 0, false
}

// indexByte returns the offset of c in buf[pos:end), or -1.
func indexByte(buf []byte, pos, end int, c byte) int {
	for i := pos; i < end; i++ {
		if buf[i] == c {
			return i
		}
	}
	return -1
}

func isHTTP1Version(b []byte) bool {
	const prefix = "HTTP/1."
	if len(b) != len(prefix)+1 {
		return false
	}
	return string(b[:len(prefix)]) == prefix && b[len(prefix)] >= '0' && b[len(prefix)] <= '9'
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(b) > 0
}

// isToken reports whether b consists only of RFC 9110 token characters.
func isToken(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if !isTokenChar(c) {
			return false
		}
	}
	return true
}

func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
