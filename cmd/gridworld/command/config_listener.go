package command

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-gridworld/internal/listener"
	"github.com/pixil98/go-service"
	"golang.org/x/crypto/ssh"
)

type ListenerType int

const (
	ListenerTypeTCP ListenerType = iota
	ListenerTypeSSH
)

func (lt *ListenerType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "tcp":
		*lt = ListenerTypeTCP
	case "ssh":
		*lt = ListenerTypeSSH
	default:
		return fmt.Errorf("unknown listener type: %s", text)
	}
	return nil
}

func (lt ListenerType) String() string {
	switch lt {
	case ListenerTypeTCP:
		return "tcp"
	case ListenerTypeSSH:
		return "ssh"
	default:
		return fmt.Sprintf("ListenerType(%d)", int(lt))
	}
}

type ListenerConfig struct {
	Protocol     ListenerType `json:"protocol"`
	Port         uint16       `json:"port"`
	RestartDelay string       `json:"restart_delay,omitempty"`
	HostKeyPath  string       `json:"host_key_path,omitempty"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Port == 0 {
		el.Add(fmt.Errorf("port must be set to a positive integer"))
	}

	if cl.RestartDelay != "" {
		d, err := time.ParseDuration(cl.RestartDelay)
		if err != nil {
			el.Add(fmt.Errorf("parsing restart_delay: %w", err))
		} else if d < 0 {
			el.Add(fmt.Errorf("restart_delay must not be negative"))
		}
	}

	if cl.HostKeyPath != "" && cl.Protocol != ListenerTypeSSH {
		el.Add(fmt.Errorf("host_key_path is only valid for ssh listeners"))
	}

	return el.Err()
}

func (cl *ListenerConfig) BuildListener(cm *listener.ConnectionManager) (service.Worker, error) {
	var opts []listener.ListenerOpt
	if cl.RestartDelay != "" {
		d, err := time.ParseDuration(cl.RestartDelay)
		if err != nil {
			return nil, fmt.Errorf("parsing restart_delay: %w", err)
		}
		opts = append(opts, listener.WithRestartDelay(d))
	}

	switch cl.Protocol {
	case ListenerTypeTCP:
		return listener.NewTCPListener(cl.Port, cm, opts...), nil
	case ListenerTypeSSH:
		hostKey, err := cl.loadOrGenerateHostKey()
		if err != nil {
			return nil, fmt.Errorf("setting up ssh host key: %w", err)
		}
		return listener.NewSshListener(cl.Port, cm, hostKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown listener type: %v", cl.Protocol)
	}
}

func (cl *ListenerConfig) loadOrGenerateHostKey() (ssh.Signer, error) {
	if cl.HostKeyPath != "" {
		keyBytes, err := os.ReadFile(cl.HostKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading host key %q: %w", cl.HostKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parsing host key %q: %w", cl.HostKeyPath, err)
		}
		return signer, nil
	}

	slog.Warn("no host_key_path configured for ssh listener, generating ephemeral key", "port", cl.Port)
	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(privKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer from ephemeral key: %w", err)
	}
	return signer, nil
}
