package pylit

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Format renders a Go value as a Python literal. Map keys are emitted in
// sorted order so the output is deterministic.
func Format(value any) (string, error) {
	var b strings.Builder
	if err := format(&b, value); err != nil {
		return "", err
	}
	return b.String(), nil
}

func format(b *strings.Builder, value any) error {
	switch v := value.(type) {
	case nil:
		b.WriteString("None")
	case bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case string:
		b.WriteString(quote(v))
	case int:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case uint:
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(v, 10))
	case float32:
		return formatFloat(b, float64(v))
	case float64:
		return formatFloat(b, v)
	case []any:
		return formatSeq(b, v)
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return formatSeq(b, items)
	case []int:
		items := make([]any, len(v))
		for i, n := range v {
			items[i] = n
		}
		return formatSeq(b, items)
	case []float64:
		items := make([]any, len(v))
		for i, f := range v {
			items[i] = f
		}
		return formatSeq(b, items)
	case map[string]any:
		return formatDict(b, v)
	default:
		return fmt.Errorf("python literal: cannot format %T", value)
	}
	return nil
}

func formatFloat(b *strings.Builder, f float64) error {
	switch {
	case math.IsInf(f, 1):
		b.WriteString("float('inf')")
	case math.IsInf(f, -1):
		b.WriteString("float('-inf')")
	case math.IsNaN(f):
		b.WriteString("float('nan')")
	default:
		text := strconv.FormatFloat(f, 'g', -1, 64)
		b.WriteString(text)
		// An integral float must keep a float marker or Python reads an int.
		if !strings.ContainsAny(text, ".eE") {
			b.WriteString(".0")
		}
	}
	return nil
}

func formatSeq(b *strings.Builder, items []any) error {
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := format(b, item); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func formatDict(b *strings.Builder, dict map[string]any) error {
	keys := make([]string, 0, len(dict))
	for key := range dict {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(key))
		b.WriteString(": ")
		if err := format(b, dict[key]); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

// quote renders s the way Python repr does: single quotes unless the string
// contains a single quote but no double quote.
func quote(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(q)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case rune(q):
			b.WriteByte('\\')
			b.WriteByte(q)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte(q)
	return b.String()
}
