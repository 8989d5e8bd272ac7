package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, d *Dispatcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-d.Done()
	})

	return cancel
}

func TestDispatcher_RunsInPostOrder(t *testing.T) {
	d := New()
	startLoop(t, d)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	wg.Add(10)
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Post(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	wg.Wait()

	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestDispatcher_SingleOwner(t *testing.T) {
	d := New()
	startLoop(t, d)

	// Unsynchronized counter: only safe when every increment runs on the
	// owner goroutine.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				require.NoError(t, d.Call(context.Background(), func() error {
					counter++
					return nil
				}))
			}
		}()
	}
	wg.Wait()

	var got int
	require.NoError(t, d.Call(context.Background(), func() error {
		got = counter
		return nil
	}))
	require.Equal(t, 800, got)
}

func TestDispatcher_CallReturnsError(t *testing.T) {
	d := New()
	startLoop(t, d)

	errBoom := errors.New("boom")
	err := d.Call(context.Background(), func() error { return errBoom })
	require.ErrorIs(t, err, errBoom)
}

func TestDispatcher_PanicBecomesWarning(t *testing.T) {
	warnings := make(chan error, 1)
	d := New(WithWarningHandler(func(err error) { warnings <- err }))
	startLoop(t, d)

	require.NoError(t, d.Post(func() { panic("exit handler failed") }))

	select {
	case err := <-warnings:
		assert.Contains(t, err.Error(), "exit handler failed")
	case <-time.After(5 * time.Second):
		t.Fatal("no warning received")
	}

	// The loop survives the panic.
	require.NoError(t, d.Call(context.Background(), func() error { return nil }))

	err := d.Call(context.Background(), func() error { panic("in call") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in call")
}

func TestDispatcher_PostAfterStop(t *testing.T) {
	d := New()
	cancel := startLoop(t, d)
	cancel()
	<-d.Done()

	require.ErrorIs(t, d.Post(func() {}), ErrStopped)
	require.ErrorIs(t, d.Call(context.Background(), func() error { return nil }), ErrStopped)
	require.ErrorIs(t, d.Post(nil), ErrNilFunc)
}

func TestDispatcher_CallContextCanceled(t *testing.T) {
	// Not running: the call is queued but never executed.
	d := New()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Call(ctx, func() error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcher_DrainsOnStop(t *testing.T) {
	d := New()
	ran := make(chan struct{})
	require.NoError(t, d.Post(func() { close(ran) }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	select {
	case <-ran:
	default:
		t.Fatal("queued function not run before stopping")
	}
}

func TestDispatcher_AcceptedPostsRunAcrossStop(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := New(WithQueueSize(4))
		ctx, cancel := context.WithCancel(context.Background())
		loopDone := make(chan error, 1)
		go func() {
			loopDone <- d.Run(ctx)
		}()

		var (
			accepted atomic.Int64
			executed atomic.Int64
			wg       sync.WaitGroup
		)
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					if err := d.Post(func() { executed.Add(1) }); err != nil {
						assert.ErrorIs(t, err, ErrStopped)
						return
					}
					accepted.Add(1)
				}
			}()
		}

		time.Sleep(time.Millisecond)
		cancel()
		require.NoError(t, <-loopDone)
		wg.Wait()

		require.Equal(t, accepted.Load(), executed.Load(), "iteration %d", i)
		require.ErrorIs(t, d.Post(func() {}), ErrStopped)
	}
}
