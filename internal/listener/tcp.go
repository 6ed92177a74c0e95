package listener

import (
	"context"
	"log/slog"
	"net"
)

// TCPListener accepts raw TCP agent connections carrying JSON messages.
type TCPListener struct {
	cm *ConnectionManager
	a  *acceptor
}

func NewTCPListener(port uint16, cm *ConnectionManager, opts ...ListenerOpt) *TCPListener {
	l := &TCPListener{cm: cm}
	l.a = newAcceptor("tcp", port, l.handleConnection, opts...)
	return l
}

func (l *TCPListener) Start(ctx context.Context) error {
	return l.a.run(ctx)
}

func (l *TCPListener) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Unblock reads when the server shuts down.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	slog.InfoContext(ctx, "tcp connection established", "remote", conn.RemoteAddr())
	l.cm.AcceptConnection(ctx, conn)
	slog.InfoContext(ctx, "tcp connection closed", "remote", conn.RemoteAddr())
}
