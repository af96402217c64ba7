package forecast

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable means neither engine flavour could be reached. The
// forecast subsystem is nonfunctional without an engine, so this is fatal and
// never retried.
var ErrEngineUnavailable = errors.New("forecasting engine unavailable")

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func validationErrorf(format string, args ...interface{}) error {
	return ValidationError{reason: fmt.Errorf(format, args...)}
}

// NonFiniteForecastError is returned when every configured forecast attempt
// produced non-finite output.
type NonFiniteForecastError struct {
	LastFailure string
}

func (e *NonFiniteForecastError) Error() string {
	return e.LastFailure
}
