package profile

import (
	"github.com/pkg/errors"
)

var (
	ErrNoFactory        = errors.New("no supervisor factory configured")
	ErrNoOpenCommand    = errors.New("no command configured to open reports")
	ErrReportNotReady   = errors.New("report file is not readable")
	ErrSessionNotInTree = errors.New("session was removed while profiling")
)
