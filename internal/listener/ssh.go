package listener

import (
	"context"
	"log/slog"
	"net"

	"golang.org/x/crypto/ssh"
)

// SshListener serves agents over an SSH session channel. The channel carries
// the same JSON stream as a TCP connection.
type SshListener struct {
	cm     *ConnectionManager
	config *ssh.ServerConfig
	a      *acceptor
}

func NewSshListener(port uint16, cm *ConnectionManager, hostKey ssh.Signer, opts ...ListenerOpt) *SshListener {
	config := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	config.AddHostKey(hostKey)

	l := &SshListener{cm: cm, config: config}
	l.a = newAcceptor("ssh", port, l.handleConnection, opts...)
	return l
}

func (l *SshListener) Start(ctx context.Context) error {
	return l.a.run(ctx)
}

func (l *SshListener) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, l.config)
	if err != nil {
		slog.ErrorContext(ctx, "ssh handshake", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	defer sshConn.Close()

	slog.InfoContext(ctx, "ssh connection established", "remote", conn.RemoteAddr())

	// Close the SSH connection when the context is cancelled.
	// This unblocks the channel iteration loop below so handleConnection can return.
	stop := context.AfterFunc(ctx, func() {
		sshConn.Close()
	})
	defer stop()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		ch, requests, err := newChan.Accept()
		if err != nil {
			slog.ErrorContext(ctx, "accepting ssh channel", "error", err)
			continue
		}

		// Wait for the client to request a shell or exec before starting the session.
		// SSH clients won't forward input until they receive the reply. A channel
		// closed before either request reports false.
		started := make(chan bool, 1)
		go func(in <-chan *ssh.Request) {
			ok := false
			for req := range in {
				switch req.Type {
				case "shell", "exec":
					req.Reply(!ok, nil)
					if !ok {
						ok = true
						started <- true
					}
				default:
					// Rejecting pty keeps the stream free of terminal processing.
					req.Reply(false, nil)
				}
			}
			if !ok {
				started <- false
			}
		}(requests)

		select {
		case ok := <-started:
			if !ok {
				slog.DebugContext(ctx, "ssh channel closed before shell request", "remote", conn.RemoteAddr())
				ch.Close()
				continue
			}
		case <-ctx.Done():
			ch.Close()
			continue
		}

		l.cm.AcceptConnection(ctx, ch)
		ch.Close()
	}
}
