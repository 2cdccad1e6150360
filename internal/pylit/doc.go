// Package pylit converts between Go values and Python literal text.
//
// The remote engine evaluates commands with a Python interpreter and sends
// results back as repr() strings. Parse turns such a string into Go-native
// values (nil, bool, int64, float64, string, []any, map[string]any), and
// Format renders Go values as literals the interpreter will accept, so
// command text can embed arguments safely.
//
// Only the literal subset needed for engine replies is covered. ParseCalls
// additionally accepts dotted names and call expressions, resolved through
// a caller-supplied function; the object marshaller uses this to recognize
// its proxy reference grammar. Anything else, comprehensions and byte
// strings included, is rejected rather than guessed at.
package pylit
