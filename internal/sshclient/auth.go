package sshclient

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// authMethods builds the auth chain in the order OpenSSH tries it: agent,
// identity file, password, keyboard-interactive. The cleanup func releases
// the agent connection once the handshake is over.
func authMethods(t Target) ([]ssh.AuthMethod, func(), error) {
	var methods []ssh.AuthMethod
	cleanup := func() {}

	if t.UseAgent {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			conn, err := net.Dial("unix", sock)
			if err != nil {
				log.Warn().Err(err).Msg("ssh-agent unavailable")
			} else {
				methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
				cleanup = func() { conn.Close() }
			}
		}
	}

	if t.IdentityFile != "" {
		signer, err := loadIdentity(expandHome(t.IdentityFile))
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	password := passwordSource(t)
	if password != nil {
		methods = append(methods,
			ssh.PasswordCallback(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				if len(questions) == 0 {
					return answers, nil
				}
				pw, err := password()
				if err != nil {
					return nil, err
				}
				for i := range answers {
					answers[i] = pw
				}
				return answers, nil
			}),
		)
	}

	if len(methods) == 0 {
		cleanup()
		return nil, func() {}, errors.New("no auth methods available")
	}
	return methods, cleanup, nil
}

// passwordSource returns a memoised password getter, or nil when neither a
// password nor a prompt is configured.
func passwordSource(t Target) func() (string, error) {
	if t.Password != "" {
		return func() (string, error) { return t.Password, nil }
	}
	if t.PasswordPrompt == nil {
		return nil
	}
	var (
		cached string
		asked  bool
	)
	return func() (string, error) {
		if asked {
			return cached, nil
		}
		pw, err := t.PasswordPrompt()
		if err != nil {
			return "", err
		}
		cached, asked = pw, true
		return pw, nil
	}
}

func loadIdentity(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parse identity file %s: %w", path, err)
	}
	return signer, nil
}

// hostKeyCallback verifies the server against known_hosts unless explicitly
// told not to.
func hostKeyCallback(t Target) (ssh.HostKeyCallback, error) {
	if t.InsecureIgnoreHostKey {
		log.Warn().Str("host", t.Host).Msg("host key verification disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := t.KnownHostsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("load known_hosts: %w", err)
	}
	return cb, nil
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
