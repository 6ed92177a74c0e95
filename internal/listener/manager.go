package listener

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

type SessionRunner interface {
	RunSession(ctx context.Context, conn io.ReadWriter) error
}

type ConnectionManager struct {
	sr SessionRunner
}

func NewConnectionManager(sr SessionRunner) *ConnectionManager {
	return &ConnectionManager{
		sr: sr,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	err := m.sr.RunSession(ctx, conn)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "agent session", "error", err)
	}
}
