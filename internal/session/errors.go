package session

import "errors"

var (
	// ErrEngineUnreachable reports that the engine never became
	// ready within the session timeout.
	ErrEngineUnreachable = errors.New("session: unable to establish an engine connection")

	// ErrUnexpectedReply reports an engine reply whose shape does
	// not match what the operation requires.
	ErrUnexpectedReply = errors.New("session: unexpected reply")

	// ErrLoadFailed reports a dataset load command rejected by the
	// engine.
	ErrLoadFailed = errors.New("session: unable to load dataset")

	// ErrNoAvailableCase reports that a new-case load found no
	// inactive case slot to claim.
	ErrNoAvailableCase = errors.New("session: no case available for adding")
)
