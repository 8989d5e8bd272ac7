package session

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/maxgio92/pyperf/pkg/hierarchy"
)

var (
	ErrNoTarget         = errors.New("no profiling target configured")
	ErrAmbiguousTarget  = errors.New("target is both a project and a standalone script")
	ErrNoScript         = errors.New("standalone target has no script")
	ErrNoInterpreter    = errors.New("standalone target has no interpreter")
	ErrSessionNotFound  = errors.New("session not found in tree")
	ErrTargetNil        = errors.New("target is nil")
	ErrSessionDetached  = errors.New("session is not part of a tree")
	ErrInvalidPropValue = errors.New("invalid property value")
)

// DuplicateSessionError is returned when a file already backs a session
// of the tree.
type DuplicateSessionError struct {
	Filename string
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("session %s is already open", e.Filename)
}

// ReportNotFoundError is returned for an item that is not a report.
type ReportNotFoundError struct {
	ID hierarchy.ItemID
}

func (e *ReportNotFoundError) Error() string {
	return fmt.Sprintf("item %s is not a report", e.ID)
}

// IOError wraps a failed filesystem operation on a session or report file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
