// Package main hosts the goensight CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into gRPC
// calls against a running EnSight instance: Python command execution,
// viewport rendering, geometry export, dataset loading, event watching, and
// configuration scaffolding. It centralizes configuration resolution, engine
// connection overrides, and structured logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the session and protocol
// work lives in reusable components.
package main
