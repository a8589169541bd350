// Package protocol parses HTTP/1.1 messages out of captured byte
// transcripts, producing span-annotated parse trees that record the
// exact byte provenance of every semantic element.
package protocol

import "errors"

// Parse error taxonomy. Every error returned by this package wraps one
// of these, so callers can classify failures with errors.Is.
var (
	// ErrIncomplete means the buffer ended before a full message head
	// or body was present.
	ErrIncomplete = errors.New("incomplete message")

	// ErrMalformedHead means the head tokenizer rejected the message
	// head.
	ErrMalformedHead = errors.New("malformed message head")

	// ErrInvalidEncoding covers non-UTF-8 text where UTF-8 is
	// required, invalid chunk-size syntax, and invalid Content-Length
	// syntax.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrUnsupportedEncoding means a Transfer-Encoding value outside
	// the accepted set was declared.
	ErrUnsupportedEncoding = errors.New("unsupported transfer encoding")

	// ErrUndeterminableLength means the message asserts a body but its
	// length cannot be determined from the headers.
	ErrUndeterminableLength = errors.New("undeterminable body length")

	// ErrRangeOverrun means a computed body range would read past the
	// end of the buffer.
	ErrRangeOverrun = errors.New("body range exceeds buffer")

	// ErrSubParse means a delegate parser rejected a body it was
	// declared to contain.
	ErrSubParse = errors.New("body sub-parse failed")
)
