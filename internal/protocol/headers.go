package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spantap/spantap/internal/model"
)

// acceptedTransferEncodings is the full set of transfer codings this
// parser accepts. Both the request and response resolution paths
// reference this table; the literal list exists nowhere else.
var acceptedTransferEncodings = []string{"chunked", "identity"}

const (
	headerContentLength    = "Content-Length"
	headerContentType      = "Content-Type"
	headerTransferEncoding = "Transfer-Encoding"
)

// headerValues returns the trimmed string values of every header with
// the given name, in encounter order. Non-UTF-8 values are an encoding
// error.
func headerValues(headers []model.Header, name string) ([]string, error) {
	var values []string
	for i := range headers {
		if !headers[i].Name.EqualFold(name) {
			continue
		}
		b := headers[i].Value.Bytes()
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: %s header value is not valid UTF-8", ErrInvalidEncoding, name)
		}
		values = append(values, strings.TrimSpace(string(b)))
	}
	return values, nil
}

// transferEncodings collects every declared transfer coding across all
// Transfer-Encoding headers, splitting comma lists, lowercased and in
// encounter order.
func transferEncodings(headers []model.Header) ([]string, error) {
	values, err := headerValues(headers, headerTransferEncoding)
	if err != nil {
		return nil, err
	}

	var codings []string
	for _, v := range values {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codings = append(codings, strings.ToLower(c))
			}
		}
	}
	return codings, nil
}

// validateTransferEncodings rejects any coding outside the accepted
// set. The error names the rejected values and the accepted set.
func validateTransferEncodings(codings []string) error {
	var bad []string
	for _, c := range codings {
		if !isAcceptedTransferEncoding(c) {
			bad = append(bad, c)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s (accepted: %s)",
			ErrUnsupportedEncoding,
			strings.Join(bad, ", "),
			strings.Join(acceptedTransferEncodings, ", "))
	}
	return nil
}

func isAcceptedTransferEncoding(c string) bool {
	for _, a := range acceptedTransferEncodings {
		if c == a {
			return true
		}
	}
	return false
}

// effectiveTransferEncoding returns the coding that governs body
// framing: chunked takes precedence over identity; empty means no
// Transfer-Encoding was declared.
func effectiveTransferEncoding(codings []string) string {
	for _, a := range acceptedTransferEncodings {
		for _, c := range codings {
			if c == a {
				return a
			}
		}
	}
	return ""
}

// contentMediaType returns the lowercased media type of the first
// Content-Type header, with any parameters stripped. Empty when the
// header is absent or unreadable.
func contentMediaType(headers []model.Header) string {
	values, err := headerValues(headers, headerContentType)
	if err != nil || len(values) == 0 {
		return ""
	}
	mt := values[0]
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
