package launch

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrNoResolver      = errors.New("no launch configuration resolver")
)

// NoInterpreterConfiguredError is returned when a project has no
// interpreter to run it with.
type NoInterpreterConfiguredError struct {
	Project string
}

func (e *NoInterpreterConfiguredError) Error() string {
	return fmt.Sprintf("no interpreter configured for project %s", e.Project)
}

// InterpreterMissingError is returned when the configured interpreter is
// unknown or its executable is gone.
type InterpreterMissingError struct {
	ID   string
	Path string
}

func (e *InterpreterMissingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("interpreter %s is not configured", e.ID)
	}
	return fmt.Sprintf("interpreter %s not found at %s", e.ID, e.Path)
}

// NoStartupScriptError is returned when a project has no script to run.
type NoStartupScriptError struct {
	Project string
}

func (e *NoStartupScriptError) Error() string {
	return fmt.Sprintf("project %s has no startup script", e.Project)
}

// IsConfigurationError reports whether err means no launch command can
// be built for a target.
func IsConfigurationError(err error) bool {
	var (
		noInterpreter *NoInterpreterConfiguredError
		missing       *InterpreterMissingError
		noScript      *NoStartupScriptError
	)

	return errors.As(err, &noInterpreter) ||
		errors.As(err, &missing) ||
		errors.As(err, &noScript) ||
		errors.Is(err, ErrProjectNotFound)
}
