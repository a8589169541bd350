package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spantap/spantap/internal/jsonspan"
	"github.com/spantap/spantap/internal/model"
	"github.com/spantap/spantap/internal/span"
)

// requestBodyInfo resolves the request body length per RFC 9112
// section 6 and returns it with the effective transfer coding.
func requestBodyInfo(headers []model.Header, src []byte, headEnd int) (int, string, error) {
	codings, err := transferEncodings(headers)
	if err != nil {
		return 0, "", err
	}
	if err := validateTransferEncodings(codings); err != nil {
		return 0, "", err
	}
	te := effectiveTransferEncoding(codings)

	switch {
	case te == "chunked":
		// Chunked overrides any Content-Length.
		n, err := chunkedBodyLen(src, headEnd)
		return n, te, err
	case hasHeader(headers, headerContentLength):
		n, err := contentLength(headers)
		return n, te, err
	case te == "identity":
		return 0, "", fmt.Errorf("%w: Transfer-Encoding identity requires a Content-Length header", ErrUndeterminableLength)
	default:
		// A request with neither header has no body.
		return 0, "", nil
	}
}

// responseBodyInfo resolves the response body length per RFC 9112
// section 6. Unlike a request, a response that asserts a body must
// declare its length explicitly; there is no connection lifecycle here
// to infer read-until-close from.
func responseBodyInfo(code int, headers []model.Header, src []byte, headEnd int) (int, string, error) {
	// 1xx, 204 and 304 responses never carry a body, regardless of any
	// header fields present.
	if (code >= 100 && code <= 199) || code == 204 || code == 304 {
		return 0, "", nil
	}

	codings, err := transferEncodings(headers)
	if err != nil {
		return 0, "", err
	}
	if err := validateTransferEncodings(codings); err != nil {
		return 0, "", err
	}
	te := effectiveTransferEncoding(codings)

	switch {
	case te == "chunked":
		n, err := chunkedBodyLen(src, headEnd)
		return n, te, err
	case hasHeader(headers, headerContentLength):
		n, err := contentLength(headers)
		return n, te, err
	case te == "identity":
		return 0, "", fmt.Errorf("%w: Transfer-Encoding identity requires a Content-Length header", ErrUndeterminableLength)
	default:
		return 0, "", fmt.Errorf("%w: a response with a body must declare a Content-Length or Transfer-Encoding header", ErrUndeterminableLength)
	}
}

func hasHeader(headers []model.Header, name string) bool {
	for i := range headers {
		if headers[i].Name.EqualFold(name) {
			return true
		}
	}
	return false
}

// contentLength parses the first Content-Length header's decimal value.
// Further occurrences are not cross-checked.
func contentLength(headers []model.Header) (int, error) {
	values, err := headerValues(headers, headerContentLength)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(values[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid Content-Length value %q", ErrInvalidEncoding, values[0])
	}
	return n, nil
}

// chunkedBodyLen scans chunk-size lines starting at offset and sums the
// payload sizes until the terminal zero-size chunk. It measures only;
// no spans are produced.
func chunkedBodyLen(src []byte, offset int) (int, error) {
	var total int
	pos := offset
	for {
		size, _, dataStart, err := chunkSizeLine(src, pos)
		if err != nil {
			return 0, err
		}
		if size == 0 {
			return total, nil
		}
		total += size
		pos = dataStart + size + 2
	}
}

// chunkSizeLine parses one chunk-size line at pos, returning the
// payload size, the extension range if any (zero Range when absent),
// and the offset of the first payload byte.
func chunkSizeLine(src []byte, pos int) (int, [2]int, int, error) {
	lineEnd := findCRLF(src, pos)
	if lineEnd < 0 {
		return 0, [2]int{}, 0, fmt.Errorf("%w: missing chunk size line terminator", ErrIncomplete)
	}

	sizeEnd := lineEnd
	var ext [2]int
	if i := indexByteIn(src, pos, lineEnd, ';'); i >= 0 {
		sizeEnd = i
		ext = [2]int{i + 1, lineEnd}
	}

	sizeStr := strings.TrimSpace(string(src[pos:sizeEnd]))
	size, err := strconv.ParseUint(sizeStr, 16, 31)
	if err != nil {
		return 0, [2]int{}, 0, fmt.Errorf("%w: invalid chunk size %q", ErrInvalidEncoding, sizeStr)
	}
	return int(size), ext, lineEnd + 2, nil
}

// parseChunks re-walks the chunk stream from offset, materializing one
// Chunk per payload, and returns the offset just past the terminal
// marker's CRLF.
func parseChunks(src []byte, offset int) ([]model.Chunk, int, error) {
	var chunks []model.Chunk
	pos := offset

	for {
		size, ext, dataStart, err := chunkSizeLine(src, pos)
		if err != nil {
			return nil, 0, err
		}

		if size == 0 {
			// The terminal chunk must be followed directly by CRLF.
			// Trailer sections are not supported.
			if dataStart+2 > len(src) {
				return nil, 0, fmt.Errorf("%w: missing CRLF after terminal chunk", ErrIncomplete)
			}
			if src[dataStart] != '\r' || src[dataStart+1] != '\n' {
				return nil, 0, fmt.Errorf("%w: trailer section after terminal chunk", ErrInvalidEncoding)
			}
			return chunks, dataStart + 2, nil
		}

		dataEnd := dataStart + size
		if dataEnd > len(src) {
			return nil, 0, fmt.Errorf("%w: chunk data %d..%d exceeds buffer length %d", ErrRangeOverrun, dataStart, dataEnd, len(src))
		}

		chunk := model.Chunk{
			Span: span.NewBytes(src, dataStart, dataEnd),
			Data: src[dataStart:dataEnd],
		}
		if ext != [2]int{} {
			s := span.NewBytes(src, ext[0], ext[1])
			chunk.Extension = &s
		}
		chunks = append(chunks, chunk)

		pos = dataEnd + 2
	}
}

// parseBody materializes the body starting at start. The second return
// value is the number of on-wire bytes the body occupies, which for a
// chunked body exceeds the logical body length by the framing bytes.
func parseBody(src []byte, start, bodyLen int, mediaType, te string) (*model.Body, int, error) {
	if te == "chunked" {
		chunks, end, err := parseChunks(src, start)
		if err != nil {
			return nil, 0, err
		}
		cb := model.NewChunkedBody(chunks)
		return &model.Body{Span: cb.Combined, Content: cb}, end - start, nil
	}

	end := start + bodyLen
	if end > len(src) {
		return nil, 0, fmt.Errorf("%w: body range %d..%d exceeds buffer length %d", ErrRangeOverrun, start, end, len(src))
	}
	bodySpan := span.NewBytes(src, start, end)

	var content model.BodyContent
	if mediaType == "application/json" {
		value, err := jsonspan.Parse(bodySpan.Bytes())
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrSubParse, err)
		}
		// The delegate parsed an extracted slice starting at zero;
		// re-base it into the transcript.
		value.Offset(start)
		content = &model.JSONBody{Value: value}
	} else {
		content = &model.UnknownBody{Data: bodySpan}
	}

	return &model.Body{Span: bodySpan, Content: content}, bodyLen, nil
}

// findCRLF returns the offset of the next CRLF at or after pos, or -1.
func findCRLF(src []byte, pos int) int {
	for i := pos; i+1 < len(src); i++ {
		if src[i] == '\r' && src[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// indexByteIn returns the offset of c in src[pos:end), or -1.
func indexByteIn(src []byte, pos, end int, c byte) int {
	for i := pos; i < end; i++ {
		if src[i] == c {
			return i
		}
	}
	return -1
}
