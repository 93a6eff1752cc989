package pagesource

import (
	"github.com/pkg/errors"
)

var ErrClosed = errors.New("page source closed")

// RemoteFetchError is returned when pulling from the remote statement fails.
// The page source state is unchanged, so the call may be retried.
type RemoteFetchError struct {
	Err error
}

func (e *RemoteFetchError) Error() string {
	return "couldn't fetch batches from remote statement: " + e.Err.Error()
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

func (e *RemoteFetchError) Cause() error {
	return e.Err
}

// TerminationError is returned by the first Close if releasing the remote statement fails.
// The page source is closed regardless.
type TerminationError struct {
	Err error
}

func (e *TerminationError) Error() string {
	return "couldn't close remote statement: " + e.Err.Error()
}

func (e *TerminationError) Unwrap() error {
	return e.Err
}

func (e *TerminationError) Cause() error {
	return e.Err
}
