package protocol

import "github.com/spantap/spantap/internal/model"

// Requests iterates over consecutive HTTP/1.1 requests in a transcript.
// The cursor advances by each message's on-wire length, so pipelined
// requests are walked back to back. On error the cursor stays where it
// was; Next will return the same error again.
type Requests struct {
	src []byte
	pos int
}

// NewRequests returns an iterator over the requests in src.
func NewRequests(src []byte) *Requests {
	return &Requests{src: src}
}

// Next parses the request at the cursor. It returns (nil, nil) once the
// transcript is exhausted.
func (it *Requests) Next() (*model.Request, error) {
	if it.pos >= len(it.src) {
		return nil, nil
	}
	req, err := parseRequestAt(it.src, it.pos)
	if err != nil {
		return nil, err
	}
	it.pos += req.TotalLen
	return req, nil
}

// Pos returns the cursor's byte offset into the transcript.
func (it *Requests) Pos() int {
	return it.pos
}

// Responses iterates over consecutive HTTP/1.1 responses in a
// transcript, with the same cursor semantics as Requests.
type Responses struct {
	src []byte
	pos int
}

// NewResponses returns an iterator over the responses in src.
func NewResponses(src []byte) *Responses {
	return &Responses{src: src}
}

// Next parses the response at the cursor. It returns (nil, nil) once
// the transcript is exhausted.
func (it *Responses) Next() (*model.Response, error) {
	if it.pos >= len(it.src) {
		return nil, nil
	}
	resp, err := parseResponseAt(it.src, it.pos)
	if err != nil {
		return nil, err
	}
	it.pos += resp.TotalLen
	return resp, nil
}

// Pos returns the cursor's byte offset into the transcript.
func (it *Responses) Pos() int {
	return it.pos
}
