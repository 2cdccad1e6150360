package rpc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnection classifies every transport-level failure: dial timeouts
	// surfacing through a later call, drops mid-call, and calls attempted
	// while the engine is unreachable.
	ErrConnection = errors.New("engine connection error")

	// ErrRemoteExecution reports a command the engine received but whose
	// evaluation raised in the remote interpreter.
	ErrRemoteExecution = errors.New("remote execution error")
)

// wrapConnection tags err with ErrConnection while keeping the failing
// operation in the message for later classification via errors.Is.
func wrapConnection(operation string, err error) error {
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "engine call"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnection, operation, err)
	}
	return fmt.Errorf("%w: %s", ErrConnection, operation)
}
