// Package healthcheck tells other pyperf processes over a Unix socket
// that a detached profiling run has started its target.
package healthcheck

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	log "github.com/rs/zerolog"
)

const ReadyMsg = 0x01

var ErrNotSocket = errors.New("path exists but is not a Unix socket")

type HealthCheckServer struct {
	ln         net.Listener
	readyCh    chan struct{}
	readyOnce  sync.Once
	socketPath string
	logger     log.Logger
}

// NewHealthCheckServer creates a new health check server.
func NewHealthCheckServer(socketPath string, logger log.Logger) *HealthCheckServer {
	l := logger.With().Str("component", "healthcheck").Logger()
	return &HealthCheckServer{
		socketPath: socketPath,
		readyCh:    make(chan struct{}),
		logger:     l,
	}
}

// InitializeListener starts the UDS listener for accepting connections.
func (s *HealthCheckServer) InitializeListener(ctx context.Context) error {
	// Remove a stale socket of a previous run.
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errors.Wrap(err, "failed to listen on UDS")
	}
	s.ln = ln

	go s.acceptConnections(ctx)

	return nil
}

// Serve listens until ctx is done, then removes the socket.
func (s *HealthCheckServer) Serve(ctx context.Context) error {
	if err := s.InitializeListener(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	return s.ShutdownListener()
}

// NotifyReadiness marks the profiled target as running. Waiting and
// later clients are answered with ReadyMsg.
func (s *HealthCheckServer) NotifyReadiness() {
	s.readyOnce.Do(func() {
		s.logger.Debug().Msg("marking readiness")
		close(s.readyCh)
	})
}

// ShutdownListener gracefully shuts down the listener and removes the socket.
func (s *HealthCheckServer) ShutdownListener() error {
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug().Err(err).Msg("error closing listener")
		}
	}

	if err := os.Remove(s.socketPath); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug().Err(err).Msgf("error removing socket")
			return err
		}
		s.logger.Debug().Msg("ignoring removing socket file, as it is already removed")
	}

	return nil
}

func (s *HealthCheckServer) acceptConnections(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Msg("stopping accepting connections")
			return
		default:
			conn, err := s.ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					s.logger.Debug().Msg("ignoring accepting connection as it is closed")
					return
				}
				s.logger.Warn().Err(err).Msg("accept error")
				continue
			}

			go s.processConnection(ctx, conn)
		}
	}
}

// processConnection answers a client once the target is running.
func (s *HealthCheckServer) processConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	select {
	case <-s.readyCh:
		if !s.isConnectionAlive(conn) {
			s.logger.Debug().Msg("connection is closed")
			return
		}
		if err := s.safeWrite(conn, []byte{ReadyMsg}); err != nil {
			if !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				s.logger.Debug().Err(err).Msg("failed to write")
			}
		}
	case <-ctx.Done():
		s.logger.Debug().Msg("ignoring sending readiness message as context is canceled")
		return
	}
}

func (s *HealthCheckServer) isConnectionAlive(conn net.Conn) bool {
	conn.SetReadDeadline(time.Now())
	if _, err := conn.Read([]byte{}); err == io.EOF {
		s.logger.Debug().Err(err).Msg("cannot write ready message: connection is already closed")
		conn.Close()

		return false
	}

	conn.SetReadDeadline(time.Time{})
	return true
}

func (s *HealthCheckServer) safeWrite(conn net.Conn, data []byte) error {
	_, err := conn.Write(data)
	if err != nil {
		switch {
		case errors.Is(err, syscall.EPIPE):
			conn.Close()
			return errors.Wrap(err, "peer closed the connection")
		case errors.Is(err, syscall.ECONNRESET):
			conn.Close()
			return errors.Wrap(err, "peer reset the connection")
		default:
			return errors.Wrap(err, "failed to write")
		}
	}
	return nil
}

// WaitReady polls the socket at socketPath until the server reports
// readiness or ctx is done.
func WaitReady(ctx context.Context, socketPath string, retryInterval time.Duration) error {
	for {
		ready, err := checkReady(socketPath, retryInterval)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "timeout waiting for profiler readiness")
		case <-time.After(retryInterval):
		}
	}
}

// checkReady makes one readiness attempt. Only unrecoverable failures are
// returned as errors.
func checkReady(socketPath string, timeout time.Duration) (bool, error) {
	info, err := os.Stat(socketPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "error checking socket")
	}
	if info.Mode()&os.ModeSocket == 0 {
		return false, errors.Wrap(ErrNotSocket, socketPath)
	}

	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		if errors.Is(err, syscall.EACCES) {
			return false, errors.Wrap(err, "failed connecting")
		}
		return false, nil
	}
	defer conn.Close()

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(timeout))
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return false, nil
	}

	return buf[0] == ReadyMsg, nil
}
