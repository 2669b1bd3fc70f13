package sshserver

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"github.com/gliderlabs/ssh"
	"github.com/rs/zerolog/log"
)

var signalMap = map[ssh.Signal]syscall.Signal{
	ssh.SIGABRT: syscall.SIGABRT,
	ssh.SIGALRM: syscall.SIGALRM,
	ssh.SIGFPE:  syscall.SIGFPE,
	ssh.SIGHUP:  syscall.SIGHUP,
	ssh.SIGILL:  syscall.SIGILL,
	ssh.SIGINT:  syscall.SIGINT,
	ssh.SIGKILL: syscall.SIGKILL,
	ssh.SIGPIPE: syscall.SIGPIPE,
	ssh.SIGQUIT: syscall.SIGQUIT,
	ssh.SIGSEGV: syscall.SIGSEGV,
	ssh.SIGTERM: syscall.SIGTERM,
	ssh.SIGUSR1: syscall.SIGUSR1,
	ssh.SIGUSR2: syscall.SIGUSR2,
}

// ShellHandler runs shell on a pty for every session that asked for one.
// Window changes and signals from the client are forwarded to it.
func ShellHandler(shell string) ssh.Handler {
	if shell == "" {
		shell = DefaultShell
	}
	return func(s ssh.Session) {
		ptyReq, winCh, isPty := s.Pty()
		if !isPty {
			io.WriteString(s.Stderr(), "shellview: a pty is required\n")
			s.Exit(1)
			return
		}

		cmd := exec.Command(shell)
		cmd.Env = append(os.Environ(), "TERM="+ptyReq.Term)
		ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
			Rows: uint16(ptyReq.Window.Height),
			Cols: uint16(ptyReq.Window.Width),
		})
		if err != nil {
			log.Error().Err(err).Str("shell", shell).Msg("failed to start shell")
			s.Exit(1)
			return
		}
		defer func() { _ = ptmx.Close() }()
		log.Info().Str("user", s.User()).Str("term", ptyReq.Term).Msg("shell started")

		go func() {
			for win := range winCh {
				_ = pty.Setsize(ptmx, &pty.Winsize{
					Rows: uint16(win.Height),
					Cols: uint16(win.Width),
				})
			}
		}()

		sigCh := make(chan ssh.Signal, 4)
		done := make(chan struct{})
		defer close(done)
		s.Signals(sigCh)
		go func() {
			for {
				select {
				case sig := <-sigCh:
					if target, ok := signalMap[sig]; ok {
						log.Debug().Str("signal", string(sig)).Msg("forwarding signal")
						_ = cmd.Process.Signal(target)
					}
				case <-done:
					return
				}
			}
		}()

		go func() {
			_, err := io.Copy(ptmx, s)
			if err != nil && !errors.Is(err, os.ErrClosed) && !errors.Is(err, syscall.EIO) {
				log.Warn().Err(err).Msg("copy session stdin to pty")
			}
		}()
		_, _ = io.Copy(s, ptmx)

		code := 0
		if err := cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
			}
		}
		s.Signals(nil)
		s.Exit(code)
	}
}
