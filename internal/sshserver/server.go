// Package sshserver provides a small loopback SSH server that runs a real
// shell behind a pty. It is used to try shellview without a remote host and
// as the peer in transport tests.
package sshserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"os"

	"github.com/gliderlabs/ssh"
	"github.com/rs/zerolog/log"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/bcrypt"
)

// DefaultShell runs when Config.Shell is empty.
const DefaultShell = "/bin/sh"

// Config holds SSH server configuration.
type Config struct {
	Addr string
	// HostKeyPath is a PEM private key. Empty generates an ephemeral
	// ed25519 key.
	HostKeyPath string
	// User restricts logins to one account name when set.
	User string
	// PasswordHash is a bcrypt hash. Empty disables password auth.
	PasswordHash string
	Shell        string
	// SessionHandler replaces the pty shell, e.g. in tests.
	SessionHandler func(ssh.Session)
	Version        string // SSH server banner version (default: "shellview")
}

// Server wraps a gliderlabs/ssh server.
type Server struct {
	inner    *ssh.Server
	listener net.Listener
}

// NewServer creates and configures a new SSH server.
func NewServer(cfg Config) (*Server, error) {
	signer, err := loadHostKey(cfg.HostKeyPath)
	if err != nil {
		return nil, err
	}

	if cfg.Version == "" {
		cfg.Version = "shellview"
	}
	handler := cfg.SessionHandler
	if handler == nil {
		handler = ShellHandler(cfg.Shell)
	}

	srv := &ssh.Server{
		Addr:        cfg.Addr,
		Handler:     handler,
		HostSigners: []ssh.Signer{signer},
		Version:     cfg.Version,
		ConnectionFailedCallback: func(conn net.Conn, err error) {
			log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("ssh connection failed")
		},
	}

	if cfg.PasswordHash != "" {
		check := passwordChecker(cfg.User, cfg.PasswordHash)
		srv.PasswordHandler = func(ctx ssh.Context, password string) bool {
			return check(ctx.User(), password)
		}
		srv.KeyboardInteractiveHandler = func(ctx ssh.Context, challenger gossh.KeyboardInteractiveChallenge) bool {
			answers, err := challenger("", "", []string{"Password: "}, []bool{false})
			if err != nil || len(answers) != 1 {
				return false
			}
			return check(ctx.User(), answers[0])
		}
	}

	return &Server{inner: srv}, nil
}

func passwordChecker(wantUser, hash string) func(user, password string) bool {
	return func(user, password string) bool {
		if wantUser != "" && user != wantUser {
			log.Info().Str("user", user).Msg("login rejected: unknown user")
			return false
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			log.Info().Str("user", user).Msg("login rejected: bad password")
			return false
		}
		log.Info().Str("user", user).Msg("login accepted")
		return true
	}
}

// HashPassword returns a bcrypt hash suitable for Config.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func loadHostKey(path string) (gossh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate host key: %w", err)
		}
		signer, err := gossh.NewSignerFromKey(priv)
		if err != nil {
			return nil, fmt.Errorf("host key signer: %w", err)
		}
		return signer, nil
	}

	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host key %s: %w", path, err)
	}
	signer, err := gossh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse host key: %w", err)
	}
	return signer, nil
}

// ListenAndServe binds to the configured address and serves SSH connections.
// It blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.inner.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.inner.Addr, err)
	}
	return s.Serve(l)
}

// Serve starts serving on an existing listener. Blocks until closed.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	log.Info().Str("addr", l.Addr().String()).Msg("ssh server listening")
	return s.inner.Serve(l)
}

// Addr returns the listening address once Serve has been called.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close shuts down the server and all active connections.
func (s *Server) Close() error {
	return s.inner.Close()
}
