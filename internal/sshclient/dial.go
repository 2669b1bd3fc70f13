// Package sshclient opens an interactive shell channel on a remote host and
// exposes it through a small, internally synchronised API.
package sshclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// DefaultPort is used when a Target has no port.
const DefaultPort = 22

// Target describes the remote host and how to authenticate against it.
type Target struct {
	Host string
	Port int
	User string

	Password     string
	IdentityFile string
	UseAgent     bool
	// PasswordPrompt is consulted for password and keyboard-interactive auth
	// when Password is empty.
	PasswordPrompt func() (string, error)

	KnownHostsFile        string
	InsecureIgnoreHostKey bool

	Timeout time.Duration
}

// Addr returns host:port.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// ParseTarget splits "[user@]host[:port]". Missing parts are left zero.
func ParseTarget(s string) (Target, error) {
	var t Target
	if at := strings.LastIndex(s, "@"); at >= 0 {
		t.User, s = s[:at], s[at+1:]
	}
	if host, port, err := net.SplitHostPort(s); err == nil {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return Target{}, fmt.Errorf("invalid port %q", port)
		}
		t.Host, t.Port = host, p
	} else {
		t.Host = strings.Trim(s, "[]")
	}
	if t.Host == "" {
		return Target{}, fmt.Errorf("missing host in %q", s)
	}
	return t, nil
}

// Dial connects to the target and authenticates. Failures wrap
// ErrConnectFailed or ErrAuthFailed.
func Dial(ctx context.Context, t Target) (*ssh.Client, error) {
	auth, cleanup, err := authMethods(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer cleanup()

	hostKeys, err := hostKeyCallback(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg := &ssh.ClientConfig{
		User:            t.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	addr := t.Addr()
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	// The handshake itself does not watch ctx; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	conn.SetDeadline(time.Time{})

	log.Info().Str("addr", addr).Str("user", t.User).Str("server", string(c.ServerVersion())).Msg("ssh connected")
	return ssh.NewClient(c, chans, reqs), nil
}

func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
