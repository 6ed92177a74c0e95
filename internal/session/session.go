package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pixil98/go-gridworld/internal/protocol"
)

// Session is one agent's connection. Inbound requests are handled one at a time;
// responses and timestep observations are written from the same goroutine.
type Session struct {
	id   string
	conn io.ReadWriter
	m    *Manager

	msgs chan []byte
}

// Id returns the agent identifier assigned to this connection.
func (s *Session) Id() string {
	return s.id
}

// deliver queues a bus message for the agent, dropping it if the agent is not keeping up.
func (s *Session) deliver(data []byte) {
	select {
	case s.msgs <- data:
	default:
		slog.Warn("dropping message for slow agent", "agent", s.id, "queued", len(s.msgs))
	}
}

func (s *Session) play(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	// The reader waits for an ack after each request so only one is in flight.
	inputChan := make(chan []byte)
	ackChan := make(chan struct{})
	inputErrChan := make(chan error, 1)
	go func() {
		defer close(inputChan)
		scanner := bufio.NewScanner(s.conn)
		scanner.Buffer(make([]byte, 0, 4096), protocol.MaxMessageSize+1)
		scanner.Split(protocol.SplitJSON)
		for scanner.Scan() {
			select {
			case inputChan <- bytes.Clone(scanner.Bytes()):
			case <-done:
				return
			}
			select {
			case <-ackChan:
			case <-done:
				return
			}
		}
		inputErrChan <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-s.msgs:
			if err := s.write(msg); err != nil {
				return err
			}

		case raw, ok := <-inputChan:
			if !ok {
				err := <-inputErrChan
				if errors.Is(err, protocol.ErrMessageTooLarge) || errors.Is(err, bufio.ErrTooLong) {
					if writeErr := s.send(protocol.NewError("Message exceeds maximum size")); writeErr != nil {
						slog.WarnContext(ctx, "failed to write size error to agent", "agent", s.id, "error", writeErr)
					}
				}
				return err
			}

			var resp protocol.Response
			err := s.m.loop.Do(ctx, func(ctx context.Context) error {
				resp = s.m.sim.Handle(ctx, s.id, raw)
				return nil
			})
			if err != nil {
				return fmt.Errorf("handling request: %w", err)
			}

			if err := s.send(resp); err != nil {
				return err
			}
			ackChan <- struct{}{}
		}
	}
}

func (s *Session) send(r protocol.Response) error {
	b, err := protocol.Encode(r)
	if err != nil {
		return err
	}
	return s.write(b)
}

func (s *Session) write(b []byte) error {
	_, err := s.conn.Write(b)
	if err != nil {
		return fmt.Errorf("writing to agent %q: %w", s.id, err)
	}
	return nil
}
