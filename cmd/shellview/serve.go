package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gliderlabs/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stlalpha/shellview/internal/logging"
	"github.com/stlalpha/shellview/internal/sshserver"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local SSH server that hands out a shell",
		Long: `Run a password-protected SSH server backed by a local pty shell. It is meant
for trying shellview against a known host; generate server.password_hash with
"shellview hash-password".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			closer, err := logging.Setup(logging.Options{
				File:    cfg.Log.File,
				Console: true,
				Level:   cfg.Log.Level,
				Debug:   cfg.Log.Debug,
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			if cfg.Server.PasswordHash == "" {
				return errors.New("server.password_hash is required (see shellview hash-password)")
			}

			srv, err := sshserver.NewServer(sshserver.Config{
				Addr:         cfg.Server.Addr,
				HostKeyPath:  cfg.Server.HostKey,
				User:         cfg.Server.User,
				PasswordHash: cfg.Server.PasswordHash,
				Shell:        cfg.Server.Shell,
			})
			if err != nil {
				return err
			}

			go func() {
				<-cmd.Context().Done()
				log.Info().Msg("shutting down")
				srv.Close()
			}()

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				return fmt.Errorf("ssh server: %w", err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "listen address")
	f.String("host-key", "", "host key file (default: ephemeral ed25519 key)")
	f.String("user", "", "only accept this user name")
	f.String("shell", "", "shell to run (default "+sshserver.DefaultShell+")")

	a.v.BindPFlag("server.addr", f.Lookup("addr"))
	a.v.BindPFlag("server.host_key", f.Lookup("host-key"))
	a.v.BindPFlag("server.user", f.Lookup("user"))
	a.v.BindPFlag("server.shell", f.Lookup("shell"))
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for server.password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("empty password")
			}
			hash, err := sshserver.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// readPassword reads without echo from a terminal, or one line from a pipe.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
