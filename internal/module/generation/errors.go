package generation

import "errors"

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrModesRequired  = errors.New("at least one mode is required")
	ErrUnknownMode    = errors.New("unknown mode")
	ErrInvalidLayout  = errors.New("grid must be between 1 and 4")

	// ErrUnavailable marks a call that never reached the model: transport
	// failure, missing credentials or an open circuit. A batch in which every
	// call failed this way is reported as a failure instead of an empty result.
	ErrUnavailable = errors.New("image model unavailable")
)
