package events

import "errors"

var (
	// ErrDuplicateTag reports a registration whose short tag is
	// already present in the registry.
	ErrDuplicateTag = errors.New("events: duplicate callback tag")

	// ErrUnknownTag reports a removal for a tag that was never
	// registered or has already been removed.
	ErrUnknownTag = errors.New("events: unknown callback tag")
)
