// Package rpc manages the gRPC channel to a running EnSight instance.
//
// The engine exposes a small service surface: execute a Python command in
// one of three result modes, render the current viewport, export scene
// geometry, terminate, and stream event notifications. No generated stubs
// are used; requests and replies are plain structs moved with a CBOR codec
// and hand-written method paths, so the package has no protoc toolchain
// dependency.
//
// A Client holds at most one channel. Connect is deliberately silent on
// timeout: the engine is often still starting when the client first dials,
// and callers poll IsConnected instead of handling a connect error. Every
// call carries the configured shared secret as metadata, reconnects on
// demand, and maps transport failures to ErrConnection.
//
// The event stream is pumped by a single background goroutine owned by the
// Client; see events.go for the state machine.
package rpc
