package pylit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parse decodes a single Python literal from s. The whole input must be
// consumed; trailing non-whitespace is an error.
func Parse(s string) (any, error) {
	return ParseCalls(s, nil)
}

// CallFunc resolves name references found outside plain literals. For a
// call expression name(arg, ..., key=value, ...) it receives the evaluated
// arguments; for a bare name both args and kwargs are nil. Returning an
// error aborts the parse.
type CallFunc func(name string, args []any, kwargs map[string]any) (any, error)

// ParseCalls decodes a literal that may additionally contain dotted-name
// and call expressions, resolved through fn. With a nil fn it behaves like
// Parse.
func ParseCalls(s string, fn CallFunc) (any, error) {
	p := &parser{src: s, calls: fn}
	p.skipSpace()
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing data %q", p.src[p.pos:])
	}
	return value, nil
}

type parser struct {
	src   string
	pos   int
	calls CallFunc
}

func (p *parser) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("python literal: %s at offset %d", msg, p.pos)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) parseValue() (any, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.errorf("unexpected end of input")
	}

	switch {
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '[':
		return p.parseSequence('[', ']')
	case c == '(':
		return p.parseSequence('(', ')')
	case c == '{':
		return p.parseDict()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseName()
	}
}

func (p *parser) parseName() (any, error) {
	start := p.pos
	name := p.lexDottedName()
	switch name {
	case "None":
		return nil, nil
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "inf":
		return math.Inf(1), nil
	case "nan":
		return math.NaN(), nil
	case "":
		return nil, p.errorf("unexpected character %q", p.src[p.pos])
	}

	if p.calls == nil {
		p.pos = start
		return nil, p.errorf("unsupported token %q", name)
	}

	p.skipSpace()
	if c, ok := p.peek(); !ok || c != '(' {
		return p.calls(name, nil, nil)
	}
	args, kwargs, err := p.parseCallArgs()
	if err != nil {
		return nil, err
	}
	return p.calls(name, args, kwargs)
}

func (p *parser) lexDottedName() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' ||
			(p.pos > start && ((c >= '0' && c <= '9') || c == '.')) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

// parseCallArgs consumes "(...)" producing positional args and keyword
// arguments. A keyword argument is an identifier directly followed by '='.
func (p *parser) parseCallArgs() ([]any, map[string]any, error) {
	p.pos++ // consume '('
	args := []any{}
	var kwargs map[string]any
	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, nil, p.errorf("unterminated call")
		}
		if c == ')' {
			p.pos++
			return args, kwargs, nil
		}

		if key, ok := p.lexKeyword(); ok {
			p.skipSpace()
			value, err := p.parseValue()
			if err != nil {
				return nil, nil, err
			}
			if kwargs == nil {
				kwargs = map[string]any{}
			}
			kwargs[key] = value
		} else {
			value, err := p.parseValue()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, value)
		}

		p.skipSpace()
		c, ok = p.peek()
		if !ok {
			return nil, nil, p.errorf("unterminated call")
		}
		switch c {
		case ',':
			p.pos++
		case ')':
		default:
			return nil, nil, p.errorf("expected ',' or ')', found %q", string(c))
		}
	}
}

// lexKeyword recognizes "ident=" (not "==") at the cursor, consuming it and
// returning the identifier. On no match the cursor is left unmoved.
func (p *parser) lexKeyword() (string, bool) {
	start := p.pos
	c, ok := p.peek()
	if !ok || !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_') {
		return "", false
	}
	name := p.lexDottedName()
	if strings.Contains(name, ".") {
		p.pos = start
		return "", false
	}
	p.skipSpace()
	if c, ok := p.peek(); ok && c == '=' && !strings.HasPrefix(p.src[p.pos:], "==") {
		p.pos++
		return name, true
	}
	p.pos = start
	return "", false
}

func (p *parser) parseNumber() (any, error) {
	start := p.pos
	if c, ok := p.peek(); ok && (c == '-' || c == '+') {
		p.pos++
	}

	// repr(float("inf")) is "inf"; with a sign it arrives as "-inf".
	if strings.HasPrefix(p.src[p.pos:], "inf") {
		p.pos += len("inf")
		if p.src[start] == '-' {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	}

	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9':
			p.pos++
		case c == '.':
			isFloat = true
			p.pos++
		case c == 'e' || c == 'E':
			isFloat = true
			p.pos++
			if n, ok := p.peek(); ok && (n == '-' || n == '+') {
				p.pos++
			}
		default:
			goto done
		}
	}
done:
	text := p.src[start:p.pos]
	if text == "" || text == "-" || text == "+" {
		return nil, p.errorf("malformed number %q", text)
	}

	if !isFloat {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		// Fall through for integers beyond int64 range.
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf("malformed number %q", text)
	}
	return f, nil
}

func (p *parser) parseString() (string, error) {
	quote := p.src[p.pos]
	p.pos++

	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if err := p.parseEscape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *parser) parseEscape(b *strings.Builder) error {
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\\':
		b.WriteByte('\\')
	case '\'':
		b.WriteByte('\'')
	case '"':
		b.WriteByte('"')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case 'a':
		b.WriteByte('\a')
	case '0':
		b.WriteByte(0)
	case '\n':
		// Line continuation inside a literal produces nothing.
	case 'x':
		return p.parseHexEscape(b, 2)
	case 'u':
		return p.parseHexEscape(b, 4)
	case 'U':
		return p.parseHexEscape(b, 8)
	default:
		// Python leaves unrecognized escapes in place.
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) parseHexEscape(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated hex escape")
	}
	text := p.src[p.pos : p.pos+digits]
	n, err := strconv.ParseUint(text, 16, 32)
	if err != nil {
		return p.errorf("malformed hex escape %q", text)
	}
	p.pos += digits
	if digits == 2 {
		b.WriteByte(byte(n))
	} else {
		b.WriteRune(rune(n))
	}
	return nil
}

func (p *parser) parseSequence(open, end byte) ([]any, error) {
	p.pos++ // consume open
	items := []any{}
	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unterminated sequence")
		}
		if c == end {
			p.pos++
			return items, nil
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, value)

		p.skipSpace()
		c, ok = p.peek()
		if !ok {
			return nil, p.errorf("unterminated sequence")
		}
		switch c {
		case ',':
			p.pos++
		case end:
		default:
			return nil, p.errorf("expected ',' or %q, found %q", string(end), string(c))
		}
	}
}

func (p *parser) parseDict() (map[string]any, error) {
	p.pos++ // consume '{'
	dict := map[string]any{}
	for {
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unterminated dict")
		}
		if c == '}' {
			p.pos++
			return dict, nil
		}

		key, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		keyText, ok := key.(string)
		if !ok {
			return nil, p.errorf("dict key must be a string, found %T", key)
		}

		p.skipSpace()
		if c, ok := p.peek(); !ok || c != ':' {
			return nil, p.errorf("expected ':' after dict key %q", keyText)
		}
		p.pos++

		p.skipSpace()
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		dict[keyText] = value

		p.skipSpace()
		c, ok = p.peek()
		if !ok {
			return nil, p.errorf("unterminated dict")
		}
		switch c {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}', found %q", string(c))
		}
	}
}
