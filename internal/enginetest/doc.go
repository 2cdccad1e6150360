// Package enginetest runs a scriptable stand-in for an EnSight engine
// on a loopback gRPC listener. Tests point a real client at it, so the
// wire codec, metadata authentication and streaming behavior are
// exercised end to end instead of being mocked away.
//
// The engine answers RunPython from a script table keyed by the exact
// command text, falling back to a caller-supplied function and finally
// to the Python None repr. Every received command is recorded for
// later assertion. Render and geometry requests return fixed payloads,
// and Emit pushes event URLs to any connected event streams whose
// prefix filter matches.
package enginetest
