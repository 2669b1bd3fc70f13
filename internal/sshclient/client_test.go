package sshclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gssh "github.com/gliderlabs/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stlalpha/shellview/internal/sshserver"
)

// echoHandler reports the pty it was given, every resize and signal, and
// echoes stdin back with a prefix. Sending "exit" ends the session with
// status 3.
func echoHandler(s gssh.Session) {
	ptyReq, winCh, ok := s.Pty()
	if !ok {
		s.Exit(1)
		return
	}
	fmt.Fprintf(s, "TERM=%s %dx%d\n", ptyReq.Term, ptyReq.Window.Width, ptyReq.Window.Height)

	sigs := make(chan gssh.Signal, 4)
	s.Signals(sigs)
	go func() {
		for {
			select {
			case w, ok := <-winCh:
				if !ok {
					return
				}
				fmt.Fprintf(s, "resize:%dx%d\n", w.Width, w.Height)
			case sig := <-sigs:
				fmt.Fprintf(s, "signal:%s\n", sig)
			case <-s.Context().Done():
				return
			}
		}
	}()

	buf := make([]byte, 1024)
	for {
		n, err := s.Read(buf)
		if n > 0 {
			in := string(buf[:n])
			if strings.Contains(in, "exit") {
				fmt.Fprintln(s.Stderr(), "bye")
				s.Exit(3)
				return
			}
			fmt.Fprintf(s, "echo:%s\n", in)
		}
		if err != nil {
			return
		}
	}
}

func startServer(t *testing.T) Target {
	t.Helper()

	hash, err := sshserver.HashPassword("secret")
	require.NoError(t, err)
	srv, err := sshserver.NewServer(sshserver.Config{
		User:           "alice",
		PasswordHash:   hash,
		SessionHandler: echoHandler,
	})
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(l)
	t.Cleanup(func() { srv.Close() })

	return Target{
		Host:                  "127.0.0.1",
		Port:                  l.Addr().(*net.TCPAddr).Port,
		User:                  "alice",
		Password:              "secret",
		InsecureIgnoreHostKey: true,
		Timeout:               5 * time.Second,
	}
}

// readUntil polls the channel until the accumulated output contains want.
func readUntil(t *testing.T, read func(bool) []byte, want string) string {
	t.Helper()
	var acc strings.Builder
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		acc.Write(read(false))
		if strings.Contains(acc.String(), want) {
			return acc.String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %q, got: %q", want, acc.String())
	return ""
}

func TestShellChannelRoundTrip(t *testing.T) {
	target := startServer(t)

	client, err := Dial(context.Background(), target)
	require.NoError(t, err)

	ch, err := Open(client, PtyRequest{Term: "linux", Cols: 80, Rows: 24})
	require.NoError(t, err)
	defer ch.Close()

	readUntil(t, ch.ReadStdout, "TERM=linux 80x24")

	ch.Resize(100, 30)
	readUntil(t, ch.ReadStdout, "resize:100x30")

	require.NoError(t, ch.SendSignal(SignalINT))
	readUntil(t, ch.ReadStdout, "signal:INT")

	require.NoError(t, ch.Write([]byte("hi")))
	readUntil(t, ch.ReadStdout, "echo:hi")

	require.NoError(t, ch.Write([]byte("exit")))
	readUntil(t, ch.ReadStderr, "bye")

	require.Eventually(t, func() bool {
		ch.ReadStdout(false)
		ch.ReadStderr(false)
		return !ch.IsOpen()
	}, 5*time.Second, 10*time.Millisecond)

	status, ok := ch.ExitStatus()
	require.True(t, ok)
	assert.Equal(t, 3, status)

	assert.NoError(t, ch.Close())
	assert.NoError(t, ch.Close())
}

func TestDialWrongPassword(t *testing.T) {
	target := startServer(t)
	target.Password = "nope"

	_, err := Dial(context.Background(), target)

	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDialUnknownUser(t *testing.T) {
	target := startServer(t)
	target.User = "mallory"

	_, err := Dial(context.Background(), target)

	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDialPromptsForPassword(t *testing.T) {
	target := startServer(t)
	target.Password = ""
	var asked atomic.Int32
	target.PasswordPrompt = func() (string, error) {
		asked.Add(1)
		return "secret", nil
	}

	client, err := Dial(context.Background(), target)
	require.NoError(t, err)
	client.Close()

	assert.Equal(t, int32(1), asked.Load())
}

func TestDialNoAuthMethods(t *testing.T) {
	_, err := Dial(context.Background(), Target{Host: "127.0.0.1", Port: 1, User: "x", InsecureIgnoreHostKey: true})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDialRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	_, err = Dial(context.Background(), Target{
		Host: "127.0.0.1", Port: port, User: "alice", Password: "secret",
		InsecureIgnoreHostKey: true, Timeout: time.Second,
	})
	assert.ErrorIs(t, err, ErrConnectFailed)
}

func TestDialCancelled(t *testing.T) {
	target := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, target)
	assert.ErrorIs(t, err, ErrConnectFailed)
}

func TestDialUnknownHostKey(t *testing.T) {
	target := startServer(t)
	target.InsecureIgnoreHostKey = false
	target.KnownHostsFile = t.TempDir() + "/known_hosts"
	require.NoError(t, os.WriteFile(target.KnownHostsFile, nil, 0o600))

	_, err := Dial(context.Background(), target)
	assert.ErrorIs(t, err, ErrConnectFailed)
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want Target
	}{
		{"example.org", Target{Host: "example.org"}},
		{"bob@example.org", Target{Host: "example.org", User: "bob"}},
		{"bob@example.org:2222", Target{Host: "example.org", User: "bob", Port: 2222}},
		{"[::1]:22", Target{Host: "::1", Port: 22}},
		{"::1", Target{Host: "::1"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseTarget("bob@")
	assert.Error(t, err)
	_, err = ParseTarget("host:notaport")
	assert.Error(t, err)
}

func TestTargetAddrDefaultsPort(t *testing.T) {
	assert.Equal(t, "example.org:22", Target{Host: "example.org"}.Addr())
	assert.Equal(t, "[::1]:2022", Target{Host: "::1", Port: 2022}.Addr())
}

type fakeRequester struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRequester) SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error) {
	f.calls.Add(1)
	return false, nil, f.err
}

func TestKeepaliveStopsAfterFailure(t *testing.T) {
	req := &fakeRequester{err: errors.New("connection lost")}
	failed := make(chan error, 4)

	k, err := StartKeepalive(req, "@every 1s", func(err error) { failed <- err })
	require.NoError(t, err)
	defer k.Stop()

	select {
	case err := <-failed:
		assert.EqualError(t, err, "connection lost")
	case <-time.After(5 * time.Second):
		t.Fatal("keepalive never failed")
	}

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), req.calls.Load())
	assert.Empty(t, failed)
}

func TestKeepaliveInvalidSchedule(t *testing.T) {
	_, err := StartKeepalive(&fakeRequester{}, "every now and then", nil)
	assert.Error(t, err)
}
