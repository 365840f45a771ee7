package foreman

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ConnHandler processes one accepted connection. The connection is closed
// for it when it returns; closing earlier is fine too.
type ConnHandler func(net.Conn)

const (
	defaultBackoffInitial = 50 * time.Millisecond
	defaultBackoffMax     = 1 * time.Second
	defaultDrainUnit      = 200 * time.Millisecond
)

// ServerOptions configure a Server.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type ServerOptions struct {
	// Logger receives serve-loop events. Nil disables logging.
	Logger *zap.Logger

	// AccessLog receives one entry per accepted connection. Nil means
	// the entries go to Logger under the "access" name.
	AccessLog *zap.Logger

	// BackoffInitial and BackoffMax bound the delay between retries
	// after a temporary accept error.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// DrainUnit is the grace Serve allows in-flight handlers per worker
	// after the pool dies, before it returns.
	DrainUnit time.Duration
}

func (o *ServerOptions) FillDefaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.AccessLog == nil {
		o.AccessLog = o.Logger.Named("access")
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = defaultBackoffInitial
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = defaultBackoffMax
	}
	if o.DrainUnit <= 0 {
		o.DrainUnit = defaultDrainUnit
	}
}

// Server feeds accepted connections to a pool, one job per connection.
// The pool is the unit of failure: when it dies, the server stops
// accepting. The server never kills the pool except through Shutdown.
type Server struct {
	pool    *Pool
	handler ConnHandler
	opts    ServerOptions
	log     *zap.Logger

	mu sync.Mutex
	ln net.Listener
}

// NewServer builds a server over an existing pool. It panics on a nil pool
// or handler.
func NewServer(pool *Pool, handler ConnHandler, opts ServerOptions) *Server {
	if pool == nil || handler == nil {
		panic("foreman: NewServer needs a pool and a handler")
	}
	opts.FillDefaults()
	return &Server{
		pool:    pool,
		handler: handler,
		opts:    opts,
		log:     opts.Logger.Named("server"),
	}
}

// ListenAndServe listens on a TCP address and calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until the listener fails hard or the
// pool dies. Temporary accept errors are retried with backoff; a permanent
// one is reported to the pool as fatal and returned. When the pool dies,
// in-flight handlers get a short drain grace and Serve returns
// ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.log.Info("serving",
		zap.String("addr", ln.Addr().String()),
		zap.Int("workers", s.pool.Workers()),
	)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		// a dying pool unblocks Accept by closing the listener
		select {
		case <-s.pool.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	bo := boff.New(s.opts.BackoffInitial, s.opts.BackoffMax, time.Now().UnixNano())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.pool.IsDead() || errors.Is(err, net.ErrClosed) {
				s.drainGrace()
				s.log.Info("server closed")
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() {
				delay := bo.Next()
				s.log.Warn("temporary accept error; backing off",
					zap.String("sleep", delay.String()),
					zap.Error(err),
				)
				time.Sleep(delay)
				continue
			}
			s.pool.Report(Fatal(fmt.Sprintf("accept failed: %v", err)))
			return fmt.Errorf("accept: %w", err)
		}
		if s.pool.IsDead() {
			// lost the race against a fatal; don't leak the socket
			_ = conn.Close()
			continue
		}
		id := uuid.NewString()
		s.opts.AccessLog.Info("connection accepted",
			zap.String("conn", id),
			zap.String("remote", conn.RemoteAddr().String()),
		)
		s.pool.Submit(func() { s.handle(id, conn) })
	}
}

// handle runs inside a worker. A panicking handler costs one non-fatal
// signal, never the worker.
func (s *Server) handle(id string, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.pool.Report(NonFatal(fmt.Sprintf("handler panicked on conn %s: %v", id, r)))
		}
		_ = conn.Close()
	}()
	s.handler(conn)
}

// drainGrace gives in-flight handlers one last window before Serve reports
// closure: a fixed allowance per worker.
func (s *Server) drainGrace() {
	time.Sleep(time.Duration(s.pool.Workers()) * s.opts.DrainUnit)
}

// Shutdown closes the listener and tears the pool down, combining whatever
// errors both produce. A pool that was already dead is not an error here.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	var errs error
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = multierr.Append(errs, err)
		}
	}
	if err := s.pool.Shutdown(ctx); err != nil && !errors.Is(err, ErrAlreadyDead) {
		errs = multierr.Append(errs, err)
	}
	return errs
}
