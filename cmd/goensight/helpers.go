package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"goensight/internal/ensobj"
	"goensight/internal/pylit"
)

// formatPythonResult renders a marshalled command result the way the remote
// interpreter would print it, with proxy handles shown as class(id=N).
func formatPythonResult(value any) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case *ensobj.Handle:
		return v.String()
	case ensobj.ObjList:
		return formatSequence(v)
	case []any:
		return formatSequence(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("'%s': %s", key, formatPythonResult(v[key])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		if s, err := pylit.Format(v); err == nil {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
}

func formatSequence(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, formatPythonResult(item))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// parseReaderOptions turns key=value pairs into reader options, converting
// values that read as integers, floats, or booleans to their typed form.
func parseReaderOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("reader option %q must be key=value", pair)
		}
		options[key] = parseOptionValue(strings.TrimSpace(value))
	}
	return options, nil
}

func parseOptionValue(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// parseAttrSpecs maps attribute arguments for callback registration. Numeric
// arguments pass through as enum values, anything else as an attribute name.
func parseAttrSpecs(specs []string) []any {
	attrs := make([]any, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if n, err := strconv.ParseInt(spec, 10, 64); err == nil {
			attrs = append(attrs, n)
			continue
		}
		attrs = append(attrs, spec)
	}
	return attrs
}
