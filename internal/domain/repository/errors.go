package repository

import (
	"errors"
	"fmt"
)

// ErrDataSourceUnavailable is returned when a collection cannot be fetched.
var ErrDataSourceUnavailable = errors.New("data source unavailable")

// SourceError records which collection failed and why.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Source, ErrDataSourceUnavailable, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is reports every SourceError as ErrDataSourceUnavailable.
func (e *SourceError) Is(target error) bool { return target == ErrDataSourceUnavailable }

// Unavailable wraps err as a SourceError unless it already is one.
func Unavailable(source string, err error) error {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return err
	}
	return &SourceError{Source: source, Err: err}
}
