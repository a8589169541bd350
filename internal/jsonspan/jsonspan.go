// Package jsonspan parses JSON into a value tree where every node
// records the byte range of the buffer that produced it.
//
// The tree is provenance-oriented rather than decode-oriented: values
// are exposed as spans over the original bytes, not materialized Go
// values, so callers can disclose or redact individual fields by byte
// position.
package jsonspan

import (
	"errors"
	"fmt"

	"github.com/spantap/spantap/internal/span"
)

// ErrInvalidJSON is returned for any syntax violation, including
// trailing non-whitespace bytes after the top-level value.
var ErrInvalidJSON = errors.New("invalid JSON")

// Kind identifies the type of a JSON value.
type Kind int

// JSON value kinds.
const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one node of a parsed JSON tree. Its span covers the value's
// complete source text, including quotes, brackets and braces.
type Value struct {
	kind     Kind
	span     span.Span
	members  []Member
	elements []*Value
}

// Member is one key/value pair of a JSON object. The key span covers
// the key content without the surrounding quotes.
type Member struct {
	Key   span.Span
	Value *Value
}

// Kind returns the value's kind.
func (v *Value) Kind() Kind {
	return v.kind
}

// Span returns the span covering the value's source text.
func (v *Value) Span() span.Span {
	return v.span
}

// Members returns the key/value pairs of an object in encounter order,
// or nil for other kinds.
func (v *Value) Members() []Member {
	return v.members
}

// Elements returns the elements of an array in order, or nil for other
// kinds.
func (v *Value) Elements() []*Value {
	return v.elements
}

// Get returns the value of the first object member with the given key,
// or nil.
func (v *Value) Get(key string) *Value {
	for _, m := range v.members {
		if m.Key.String() == key {
			return m.Value
		}
	}
	return nil
}

// Offset shifts every recorded position in the tree forward by delta.
func (v *Value) Offset(delta int) {
	v.span.Offset(delta)
	for i := range v.members {
		v.members[i].Key.Offset(delta)
		v.members[i].Value.Offset(delta)
	}
	for _, e := range v.elements {
		e.Offset(delta)
	}
}

// Parse parses src as a single JSON value. Trailing bytes other than
// whitespace are rejected.
func Parse(src []byte) (*Value, error) {
	p := parser{src: src}
	p.skipSpace()

	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.pos != len(src) {
		return nil, fmt.Errorf("%w: trailing bytes at offset %d", ErrInvalidJSON, p.pos)
	}
	return v, nil
}

type parser struct {
	src []byte
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) errAt(msg string) error {
	return fmt.Errorf("%w: %s at offset %d", ErrInvalidJSON, msg, p.pos)
}

func (p *parser) parseValue() (*Value, error) {
	if p.pos >= len(p.src) {
		return nil, p.errAt("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		return p.parseString()
	case c == 't':
		return p.parseLiteral("true", Bool)
	case c == 'f':
		return p.parseLiteral("false", Bool)
	case c == 'n':
		return p.parseLiteral("null", Null)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return nil, p.errAt(fmt.Sprintf("unexpected byte %q", c))
	}
}

func (p *parser) parseObject() (*Value, error) {
	start := p.pos
	p.pos++ // consume '{'
	p.skipSpace()

	var members []Member
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return &Value{kind: Object, span: span.NewBytes(p.src, start, p.pos)}, nil
	}

	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '"' {
			return nil, p.errAt("expected object key")
		}
		keyStart := p.pos
		if err := p.scanString(); err != nil {
			return nil, err
		}
		key, err := span.NewString(p.src, keyStart+1, p.pos-1)
		if err != nil {
			return nil, p.errAt("object key is not valid UTF-8")
		}

		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return nil, p.errAt("expected ':' after object key")
		}
		p.pos++
		p.skipSpace()

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		members = append(members, Member{Key: key, Value: val})

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errAt("unterminated object")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return &Value{
				kind:    Object,
				span:    span.NewBytes(p.src, start, p.pos),
				members: members,
			}, nil
		default:
			return nil, p.errAt("expected ',' or '}' in object")
		}
	}
}

func (p *parser) parseArray() (*Value, error) {
	start := p.pos
	p.pos++ // consume '['
	p.skipSpace()

	var elements []*Value
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return &Value{kind: Array, span: span.NewBytes(p.src, start, p.pos)}, nil
	}

	for {
		p.skipSpace()
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		elements = append(elements, val)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errAt("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return &Value{
				kind:     Array,
				span:     span.NewBytes(p.src, start, p.pos),
				elements: elements,
			}, nil
		default:
			return nil, p.errAt("expected ',' or ']' in array")
		}
	}
}

func (p *parser) parseString() (*Value, error) {
	start := p.pos
	if err := p.scanString(); err != nil {
		return nil, err
	}
	return &Value{kind: String, span: span.NewBytes(p.src, start, p.pos)}, nil
}

// scanString consumes a quoted string starting at p.pos, leaving p.pos
// just past the closing quote.
func (p *parser) scanString() error {
	p.pos++ // consume opening quote
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == '"':
			p.pos++
			return nil
		case c == '\\':
			if err := p.scanEscape(); err != nil {
				return err
			}
		case c < 0x20:
			return p.errAt("control character in string")
		default:
			p.pos++
		}
	}
	return p.errAt("unterminated string")
}

func (p *parser) scanEscape() error {
	if p.pos+1 >= len(p.src) {
		return p.errAt("unterminated escape")
	}
	switch p.src[p.pos+1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		p.pos += 2
		return nil
	case 'u':
		if p.pos+6 > len(p.src) || !isHex(p.src[p.pos+2:p.pos+6]) {
			return p.errAt("invalid unicode escape")
		}
		p.pos += 6
		return nil
	default:
		return p.errAt("invalid escape")
	}
}

func (p *parser) parseNumber() (*Value, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	// Integer part is 0 or [1-9][0-9]*; a leading zero is never
	// followed by more digits.
	switch {
	case p.pos < len(p.src) && p.src[p.pos] == '0':
		p.pos++
	case p.scanDigits():
	default:
		return nil, p.errAt("invalid number")
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		if !p.scanDigits() {
			return nil, p.errAt("invalid number fraction")
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		if !p.scanDigits() {
			return nil, p.errAt("invalid number exponent")
		}
	}
	return &Value{kind: Number, span: span.NewBytes(p.src, start, p.pos)}, nil
}

func (p *parser) scanDigits() bool {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	return p.pos > start
}

func (p *parser) parseLiteral(lit string, kind Kind) (*Value, error) {
	if p.pos+len(lit) > len(p.src) || string(p.src[p.pos:p.pos+len(lit)]) != lit {
		return nil, p.errAt("invalid literal")
	}
	start := p.pos
	p.pos += len(lit)
	return &Value{kind: kind, span: span.NewBytes(p.src, start, p.pos)}, nil
}

func isHex(b []byte) bool {
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
