package dispatch

import "github.com/pkg/errors"

var (
	ErrStopped = errors.New("dispatcher is not running")
	ErrNilFunc = errors.New("nil function posted")
)
