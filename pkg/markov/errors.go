package markov

import "errors"

var (
	// ErrInvalidConfiguration is returned for an unknown splitter identifier
	// or an unsupported splitter parameter.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidArgument is returned when an operation argument is out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedSnapshot is returned when a snapshot is not a map of maps of
	// non-negative integers.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrEmptyWord is returned when asked to split or learn an empty word.
	ErrEmptyWord = errors.New("empty word")
	// ErrDeadEnd is returned when generation reaches a state with no outgoing links.
	ErrDeadEnd = errors.New("state has no outgoing links")
	// ErrStepLimit is returned when generation exceeds its maximum step count.
	ErrStepLimit = errors.New("generation step limit exceeded")
)
