package manager

import (
	"errors"
	"fmt"

	"workerd/internal/backend"
)

// ErrUsedAfterDispose is returned by every operation on a disposed worker.
var ErrUsedAfterDispose = errors.New("worker used after dispose")

// ErrUnknownWorker is returned when a worker does not belong to this manager.
var ErrUnknownWorker = errors.New("unknown worker")

// IsUsedAfterDispose reports whether err stems from a disposed worker.
func IsUsedAfterDispose(err error) bool { return errors.Is(err, ErrUsedAfterDispose) }

// constructionError wraps a loader failure.
type constructionError struct {
	modelID  string
	backend  backend.Backend
	fallback bool
	err      error
}

func (e constructionError) Error() string {
	msg := fmt.Sprintf("construct worker for %s on %s: %v", e.modelID, e.backend, e.err)
	if e.fallback {
		msg += " (after cpu fallback)"
	}
	return msg
}

func (e constructionError) Unwrap() error { return e.err }

// IsConstructionFailed reports whether err is a worker construction failure.
func IsConstructionFailed(err error) bool {
	var ce constructionError
	return errors.As(err, &ce)
}

// dependencyUnavailableError signals a missing runtime (e.g. llama.cpp not
// built in, or no loader configured).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}
