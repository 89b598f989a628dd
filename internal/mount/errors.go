package mount

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/stagecraft/stagecraft/internal/style"
)

var (
	// ErrSourceNotFound is returned when a local mount source does not exist.
	ErrSourceNotFound = errors.New("mount source not found")

	// ErrRenameFailed is returned when content could not be moved into or out of the stash.
	ErrRenameFailed = errors.New("rename failed")

	// ErrCopyFailed is returned when a local source could not be copied onto its destination.
	ErrCopyFailed = errors.New("copy failed")

	// ErrDownloadFailed is returned when a remote source could not be written to its destination.
	ErrDownloadFailed = errors.New("download failed")

	// ErrRemoveFailed is returned when a destination could not be cleared.
	ErrRemoveFailed = errors.New("remove failed")
)

// Error is a failed mount or unmount step. It matches both its Kind and the underlying
// cause with errors.Is.
type Error struct {
	Kind error
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, style.Symbol(e.Path))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AggregateError carries every error met while rolling back a batch or sweeping the ledger.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	points := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		points[i] = fmt.Sprintf("* %s", err)
	}

	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}
	return fmt.Sprintf("%d %s occurred:\n\t%s", len(e.Errors), noun, strings.Join(points, "\n\t"))
}

func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

func aggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: errs}
}
