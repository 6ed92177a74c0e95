package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	DefaultPort         = 8000
	DefaultRestartDelay = 5 * time.Second
)

type ListenerOpt func(*acceptor)

// WithRestartDelay sets how long a failed listener waits before its single restart.
func WithRestartDelay(d time.Duration) ListenerOpt {
	return func(a *acceptor) {
		a.restartDelay = d
	}
}

func withListenFunc(fn func(network, addr string) (net.Listener, error)) ListenerOpt {
	return func(a *acceptor) {
		a.listen = fn
	}
}

// acceptor owns a listening socket. When it fails unexpectedly it is rebuilt
// once on the same port; a second failure is returned to the caller.
type acceptor struct {
	name         string
	port         uint16
	restartDelay time.Duration
	handle       func(context.Context, net.Conn)
	listen       func(network, addr string) (net.Listener, error)
}

func newAcceptor(name string, port uint16, handle func(context.Context, net.Conn), opts ...ListenerOpt) *acceptor {
	a := &acceptor{
		name:         name,
		port:         port,
		restartDelay: DefaultRestartDelay,
		handle:       handle,
		listen:       net.Listen,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *acceptor) run(ctx context.Context) error {
	// Connections outlive a listener restart and end only on shutdown.
	connCtx, cancelConns := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	defer func() {
		cancelConns()
		wg.Wait()
	}()

	err := a.serve(ctx, connCtx, &wg)
	if err == nil || ctx.Err() != nil {
		return nil
	}

	slog.ErrorContext(ctx, "listener failed, restarting", "listener", a.name, "port", a.port, "delay", a.restartDelay, "error", err)
	timer := time.NewTimer(a.restartDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil
	}

	err = a.serve(ctx, connCtx, &wg)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%s listener on port %d failed after restart: %w", a.name, a.port, err)
}

func (a *acceptor) serve(ctx, connCtx context.Context, wg *sync.WaitGroup) error {
	ln, err := a.listen("tcp", fmt.Sprintf(":%d", a.port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", a.port, err)
	}

	slog.InfoContext(ctx, "listening", "listener", a.name, "addr", ln.Addr().String())

	// Close the listener when the parent context is canceled
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				slog.WarnContext(ctx, "temporary accept error", "listener", a.name, "error", err)
				continue
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.handle(connCtx, conn)
		}()
	}
}
