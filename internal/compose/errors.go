package compose

import "errors"

// ErrComposition marks every failure raised while assembling the movie.
var ErrComposition = errors.New("composition error")

// Error carries the user-facing message for a composition failure.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Is matches ErrComposition.
func (e *Error) Is(target error) bool {
	return target == ErrComposition
}

func (e *Error) Unwrap() error {
	return e.Err
}

func compositionError(message string, err error) error {
	return &Error{Message: message, Err: err}
}
