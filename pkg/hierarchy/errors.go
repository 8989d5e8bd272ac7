package hierarchy

import (
	"github.com/pkg/errors"
)

var (
	ErrNotSupported  = errors.New("property not supported")
	ErrUnknownItem   = errors.New("unknown item")
	ErrClosed        = errors.New("node is closed")
	ErrNilSink       = errors.New("sink is nil")
	ErrUnknownCookie = errors.New("unknown subscription cookie")
)
