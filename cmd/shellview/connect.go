package main

import (
	"fmt"
	"os"
	"os/user"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stlalpha/shellview/internal/config"
	"github.com/stlalpha/shellview/internal/logging"
	"github.com/stlalpha/shellview/internal/session"
	"github.com/stlalpha/shellview/internal/sshclient"
	"github.com/stlalpha/shellview/internal/ui"
)

func newConnectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect [user@]host[:port]",
		Short: "Open an interactive shell on a remote host",
		Long: `Connect to a remote host and run its login shell in the terminal view.

Press ctrl+] followed by q to quit, i/t/h/k to send SIGINT/SIGTERM/SIGHUP/SIGKILL,
s to send a signal by name, or pgup/pgdn to scroll.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			target, err := resolveTarget(cfg, args)
			if err != nil {
				return err
			}
			return runConnect(cmd, a, cfg, target)
		},
	}

	f := cmd.Flags()
	f.IntP("port", "p", 0, "remote port")
	f.StringP("identity", "i", "", "private key file")
	f.String("known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")
	f.Bool("insecure", false, "do not verify the host key")
	f.StringP("term", "t", "", "terminal variant: linux, dumb or null")
	f.String("charset", "", "remote charset: utf-8, cp437, iso-8859-1 or koi8-r")
	f.String("palette", "", "colour palette: xterm or vga")

	a.v.BindPFlag("ssh.port", f.Lookup("port"))
	a.v.BindPFlag("ssh.identity_file", f.Lookup("identity"))
	a.v.BindPFlag("ssh.known_hosts", f.Lookup("known-hosts"))
	a.v.BindPFlag("ssh.insecure_ignore_host_key", f.Lookup("insecure"))
	a.v.BindPFlag("terminal.variant", f.Lookup("term"))
	a.v.BindPFlag("terminal.charset", f.Lookup("charset"))
	a.v.BindPFlag("terminal.palette", f.Lookup("palette"))
	return cmd
}

// resolveTarget merges the command-line destination over the ssh section.
func resolveTarget(cfg *config.Config, args []string) (sshclient.Target, error) {
	target := cfg.SSH.Target()
	if len(args) == 1 {
		dest, err := sshclient.ParseTarget(args[0])
		if err != nil {
			return sshclient.Target{}, err
		}
		target.Host = dest.Host
		if dest.Port != 0 {
			target.Port = dest.Port
		}
		if dest.User != "" {
			target.User = dest.User
		}
	}
	if target.Host == "" {
		return sshclient.Target{}, fmt.Errorf("no host given and ssh.host is not set")
	}
	if target.User == "" {
		if u, err := user.Current(); err == nil {
			target.User = u.Username
		}
	}
	return target, nil
}

// needsPassword reports whether no other credential could be offered.
func needsPassword(t sshclient.Target) bool {
	if t.Password != "" || t.IdentityFile != "" {
		return false
	}
	return !t.UseAgent || os.Getenv("SSH_AUTH_SOCK") == ""
}

func runConnect(cmd *cobra.Command, a *app, cfg *config.Config, target sshclient.Target) error {
	closer, err := logging.Setup(logging.Options{
		File:  cfg.Log.File,
		Level: cfg.Log.Level,
		Debug: cfg.Log.Debug,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	cols, rows := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && h > 1 {
		cols, rows = w, h-1
	}

	palette := cfg.Terminal.ParsedPalette()
	registry := session.NewRegistry()
	defer registry.CloseAll()

	model := ui.New(cmd.Context(), ui.Options{
		Session: session.Options{
			Target:            target,
			Variant:           cfg.Terminal.ParsedVariant(),
			Charset:           cfg.Terminal.ParsedCharset(),
			Palette:           &palette,
			Columns:           cols,
			Rows:              rows,
			PollInterval:      cfg.Terminal.PollInterval,
			KeepaliveSchedule: cfg.SSH.Keepalive,
		},
		AskPassword: needsPassword(target),
		Registry:    registry,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	if path := a.v.ConfigFileUsed(); path != "" {
		w, err := config.NewWatcher(path, config.DefaultDebounce, func(c *config.Config) {
			p.Send(ui.ConfigReloadedMsg{Palette: c.Terminal.ParsedPalette(), Debug: c.Log.Debug})
		})
		if err != nil {
			log.Warn().Err(err).Msg("config hot reload disabled")
		} else {
			defer w.Stop()
		}
	}

	log.Info().Str("target", target.Addr()).Str("user", target.User).Msg("starting session")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal view: %w", err)
	}
	return nil
}
