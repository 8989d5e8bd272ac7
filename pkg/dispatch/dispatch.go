// Package dispatch runs functions on a single owner goroutine.
//
// Session trees are not safe for concurrent use. Code running on other
// goroutines, like process supervisors reporting an exit, posts the
// mutation to a Dispatcher instead of touching the tree directly.
package dispatch

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
)

const defaultQueueSize = 64

type Dispatcher struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once

	// mu orders Post against the final drain: once stopped is set under
	// the write lock, no further function reaches the queue.
	mu         sync.RWMutex
	stopped    bool
	stopping   chan struct{}
	refuseOnce sync.Once

	onWarning func(error)
	logger    log.Logger
}

type Option func(d *Dispatcher)

func WithLogger(logger log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithWarningHandler sets the function receiving non-fatal failures,
// panics of posted functions included. It runs on the owner goroutine.
func WithWarningHandler(f func(error)) Option {
	return func(d *Dispatcher) {
		d.onWarning = f
	}
}

func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queue = make(chan func(), size)
		}
	}
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:  make(chan func(), defaultQueueSize),
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
		logger:   log.Nop(),
	}
	for _, f := range opts {
		f(d)
	}
	d.logger = d.logger.With().Str("component", "dispatcher").Logger()

	return d
}

// Post queues fn for the owner goroutine. It may be called from any
// goroutine and fails once the loop has stopped. A function it accepts
// always runs.
func (d *Dispatcher) Post(fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- fn:
		return nil
	case <-d.stopping:
		return ErrStopped
	}
}

// Call runs fn on the owner goroutine and waits for its result.
func (d *Dispatcher) Call(ctx context.Context, fn func() error) error {
	if fn == nil {
		return ErrNilFunc
	}
	result := make(chan error, 1)
	if err := d.Post(func() {
		result <- d.protect(fn)
	}); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		// The function may have run right before the loop stopped.
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

// Warn hands err to the warning handler. Call it on the owner goroutine.
func (d *Dispatcher) Warn(err error) {
	if err == nil {
		return
	}
	d.logger.Warn().Err(err).Msg("warning")
	if d.onWarning != nil {
		d.onWarning(err)
	}
}

// Run executes posted functions in order until ctx is done. The calling
// goroutine becomes the owner goroutine.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.stop()
	d.logger.Debug().Msg("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.refuse()
			d.drain()
			d.logger.Debug().Msg("dispatcher stopped")
			return nil
		case fn := <-d.queue:
			d.exec(fn)
		}
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) drain() {
	for {
		select {
		case fn := <-d.queue:
			d.exec(fn)
		default:
			return
		}
	}
}

// refuse makes Post fail from now on. It returns once no Post is
// in flight, so the queue holds every accepted function.
func (d *Dispatcher) refuse() {
	d.refuseOnce.Do(func() {
		close(d.stopping)
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
	})
}

func (d *Dispatcher) stop() {
	d.once.Do(func() {
		close(d.done)
	})
}

func (d *Dispatcher) exec(fn func()) {
	if err := d.protect(func() error {
		fn()
		return nil
	}); err != nil {
		d.Warn(err)
	}
}

func (d *Dispatcher) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("recovered from panic: %v", r)
		}
	}()

	return fn()
}
