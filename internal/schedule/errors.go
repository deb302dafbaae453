package schedule

import "errors"

var (
	// ErrMalformedEntry is returned when an entry cannot be decoded or holds
	// values outside the model's ranges.
	ErrMalformedEntry = errors.New("malformed schedule entry")
	// ErrMalformedSchedule is returned when any element of a snapshot fails to decode.
	// The whole load is rejected.
	ErrMalformedSchedule = errors.New("malformed schedule")
	// ErrStaleEditTarget is returned when the edited slot no longer exists.
	ErrStaleEditTarget = errors.New("edited schedule entry no longer exists")
)
