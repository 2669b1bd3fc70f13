package sshclient

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// ChannelHandle is the transport-level session channel a Channel drives.
type ChannelHandle interface {
	// Read copies up to len(p) bytes of stdout, or stderr when wantStderr is
	// set. A non-blocking read returns (0, nil) when nothing is pending.
	Read(p []byte, wantStderr, block bool) (int, error)
	Write(p []byte) (int, error)
	ChangePtySize(cols, rows int) bool
	RequestSignal(name string) bool
	IsOpen() bool
	IsEOF() bool
	SendEOF() error
	Close() error
}

// SessionHandle is the authenticated connection the channel was opened on.
type SessionHandle interface {
	Disconnect() error
}

type clientSession struct {
	client *ssh.Client
}

func (s clientSession) Disconnect() error {
	return s.client.Close()
}

// sshHandle adapts an x/crypto/ssh channel. Both output streams are pumped
// into buffers so that reads can be non-blocking.
type sshHandle struct {
	ch     ssh.Channel
	stdout *streamBuffer
	stderr *streamBuffer

	closed       atomic.Bool // closed locally
	remoteClosed atomic.Bool // request stream ended

	mu         sync.Mutex
	exitStatus int
	exited     bool
}

func newSSHHandle(ch ssh.Channel, reqs <-chan *ssh.Request) *sshHandle {
	h := &sshHandle{
		ch:     ch,
		stdout: newStreamBuffer(),
		stderr: newStreamBuffer(),
	}
	go pump(ch, h.stdout)
	go pump(ch.Stderr(), h.stderr)
	go h.serveRequests(reqs)
	return h
}

// serveRequests handles channel requests from the server. The request
// channel is closed once the server closes the channel.
func (h *sshHandle) serveRequests(reqs <-chan *ssh.Request) {
	defer h.remoteClosed.Store(true)
	for req := range reqs {
		switch req.Type {
		case "exit-status":
			if len(req.Payload) >= 4 {
				status := int(binary.BigEndian.Uint32(req.Payload))
				h.mu.Lock()
				h.exitStatus, h.exited = status, true
				h.mu.Unlock()
				log.Info().Int("status", status).Msg("remote shell exited")
			}
		case "exit-signal":
			var msg struct {
				Signal     string
				CoreDumped bool
				Error      string
				Lang       string
			}
			if err := ssh.Unmarshal(req.Payload, &msg); err == nil {
				log.Info().Str("signal", msg.Signal).Msg("remote shell killed by signal")
			}
		}
		if req.WantReply {
			req.Reply(false, nil)
		}
	}
}

func (h *sshHandle) Read(p []byte, wantStderr, block bool) (int, error) {
	if wantStderr {
		return h.stderr.Read(p, block)
	}
	return h.stdout.Read(p, block)
}

func (h *sshHandle) Write(p []byte) (int, error) {
	return h.ch.Write(p)
}

type windowChangeMsg struct {
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
}

func (h *sshHandle) ChangePtySize(cols, rows int) bool {
	payload := ssh.Marshal(windowChangeMsg{Columns: uint32(cols), Rows: uint32(rows)})
	_, err := h.ch.SendRequest("window-change", false, payload)
	return err == nil
}

type signalMsg struct {
	Signal string
}

func (h *sshHandle) RequestSignal(name string) bool {
	_, err := h.ch.SendRequest("signal", false, ssh.Marshal(signalMsg{Signal: name}))
	return err == nil
}

func (h *sshHandle) IsOpen() bool {
	if h.closed.Load() {
		return false
	}
	return !(h.remoteClosed.Load() && h.stdout.Drained() && h.stderr.Drained())
}

func (h *sshHandle) IsEOF() bool {
	return h.stdout.Drained() && h.stderr.Drained()
}

func (h *sshHandle) SendEOF() error {
	return h.ch.CloseWrite()
}

func (h *sshHandle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	err := h.ch.Close()
	// Unblock readers waiting on a stream the server never ended.
	h.stdout.CloseWrite()
	h.stderr.CloseWrite()
	return err
}

// ExitStatus returns the status the remote shell reported, if any.
func (h *sshHandle) ExitStatus() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitStatus, h.exited
}
