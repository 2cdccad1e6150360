// Package session is the high level interface to a running EnSight
// engine. A Session owns the gRPC client, the proxy handle cache, the
// reply marshaller and the event callback registry, and wires them
// together so callers see a single object they can issue commands
// against.
//
// Connect polls the engine until it answers and validates the link by
// asking for the installation identity, then snapshots the engine's
// enum table, fetches the core object handle and records the remote
// interpreter version. Commands run in one of three modes: Cmd
// evaluates Python source and returns the marshalled result, CmdExec
// runs source for its side effects only, and CmdJSON returns the
// result decoded from JSON.
//
// The dataset loader and the callback helpers are thin drivers over
// the command surface. They compose the same Python command strings a
// user would type into the engine, so everything they do can be
// reproduced or scripted by hand.
package session
