package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixil98/go-gridworld/internal/driver"
	"github.com/pixil98/go-gridworld/internal/messaging"
	"github.com/pixil98/go-gridworld/internal/sim"
)

const (
	DefaultAddr  = ":8080"
	writeTimeout = 5 * time.Second
	outQueueSize = 64
)

// Driver is the loop control the observer exposes to viewers.
type Driver interface {
	Do(ctx context.Context, fn driver.TaskFunc) error
	Step(ctx context.Context) error
	Pause()
	Resume()
	Paused() bool
}

type StateSource interface {
	State() sim.State
}

type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Frame is one websocket message to a viewer.
type Frame struct {
	Type    string          `json:"type"`
	Paused  bool            `json:"paused"`
	State   *sim.State      `json:"state,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
	Command string          `json:"command,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type command struct {
	Command string `json:"command"`
}

// Server streams world snapshots and events to renderers over websockets.
type Server struct {
	addr     string
	drv      Driver
	state    StateSource
	bus      Subscriber
	upgrader websocket.Upgrader
}

func NewServer(addr string, drv Driver, state StateSource, bus Subscriber) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		addr:  addr,
		drv:   drv,
		state: state,
		bus:   bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())
	mux.HandleFunc("/state", s.handleState)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	slog.InfoContext(ctx, "observer listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving observer: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down observer: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) snapshot(ctx context.Context) (Frame, error) {
	var st sim.State
	err := s.drv.Do(ctx, func(context.Context) error {
		st = s.state.State()
		return nil
	})
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: "snapshot", Paused: s.drv.Paused(), State: &st}, nil
}

func (s *Server) handleState(rw http.ResponseWriter, r *http.Request) {
	f, err := s.snapshot(r.Context())
	if err != nil {
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(f); err != nil {
		slog.WarnContext(r.Context(), "writing state", "error", err)
	}
}

// Handler serves one viewer connection.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan Frame, outQueueSize)
		push := func(f Frame) {
			select {
			case out <- f:
			default:
				slog.WarnContext(ctx, "dropping frame for slow viewer", "type", f.Type, "remote", r.RemoteAddr)
			}
		}

		// Subscribe before the snapshot so no event in between is lost.
		unsub, err := s.bus.Subscribe(messaging.AllEventsSubject, func(data []byte) {
			push(Frame{Type: "event", Paused: s.drv.Paused(), Event: json.RawMessage(data)})
		})
		if err != nil {
			slog.ErrorContext(ctx, "subscribing observer", "error", err)
			return
		}
		defer unsub()

		first, err := s.snapshot(ctx)
		if err != nil {
			slog.WarnContext(ctx, "observer snapshot", "error", err)
			return
		}
		if err := writeFrame(conn, first); err != nil {
			return
		}
		slog.InfoContext(ctx, "observer connected", "remote", r.RemoteAddr)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case f := <-out:
					if err := writeFrame(conn, f); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			push(s.exec(ctx, msg))
		}
		slog.InfoContext(ctx, "observer disconnected", "remote", r.RemoteAddr)
	}
}

func (s *Server) exec(ctx context.Context, msg []byte) Frame {
	var cmd command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return Frame{Type: "error", Paused: s.drv.Paused(), Error: "invalid command"}
	}

	name := strings.ToLower(strings.TrimSpace(cmd.Command))
	switch name {
	case "step":
		if err := s.drv.Step(ctx); err != nil {
			return Frame{Type: "error", Paused: s.drv.Paused(), Command: name, Error: err.Error()}
		}
	case "pause":
		s.drv.Pause()
	case "resume":
		s.drv.Resume()
	case "snapshot":
		f, err := s.snapshot(ctx)
		if err != nil {
			return Frame{Type: "error", Paused: s.drv.Paused(), Command: name, Error: err.Error()}
		}
		return f
	default:
		return Frame{Type: "error", Paused: s.drv.Paused(), Command: cmd.Command, Error: fmt.Sprintf("unknown command %q", cmd.Command)}
	}
	return Frame{Type: "ack", Paused: s.drv.Paused(), Command: name}
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
