package sshclient

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// readChunk is the size of a single read from the handle. Reads loop until a
// chunk comes back empty.
const readChunk = 256

// PtyRequest is the terminal announced to the remote side.
type PtyRequest struct {
	Term string
	Cols int
	Rows int
}

// Channel is an interactive shell channel together with the session it was
// opened on. Writes, resizes and signals are expected from one goroutine and
// reads from another; all methods are safe to call concurrently.
type Channel struct {
	mu       sync.Mutex
	handle   ChannelHandle
	session  SessionHandle
	lastCols int
	lastRows int
}

// NewChannel wraps an already set-up handle. cols and rows are the size
// requested with the pty.
func NewChannel(handle ChannelHandle, session SessionHandle, cols, rows int) *Channel {
	return &Channel{handle: handle, session: session, lastCols: cols, lastRows: rows}
}

type ptyRequestMsg struct {
	Term     string
	Columns  uint32
	Rows     uint32
	Width    uint32
	Height   uint32
	Modelist string
}

// Open starts a shell with a pty on client. On success the Channel owns the
// client and disconnects it on Close.
func Open(client *ssh.Client, req PtyRequest) (*Channel, error) {
	ch, reqs, err := client.OpenChannel("session", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open session: %v", ErrChannelFailed, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	msg := ptyRequestMsg{
		Term:     req.Term,
		Columns:  uint32(req.Cols),
		Rows:     uint32(req.Rows),
		Modelist: encodeModes(modes),
	}
	ok, err := ch.SendRequest("pty-req", true, ssh.Marshal(msg))
	if err == nil && !ok {
		err = errors.New("request refused")
	}
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: request pty: %v", ErrChannelFailed, err)
	}

	ok, err = ch.SendRequest("shell", true, nil)
	if err == nil && !ok {
		err = errors.New("request refused")
	}
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: start shell: %v", ErrChannelFailed, err)
	}

	log.Debug().Str("term", req.Term).Int("cols", req.Cols).Int("rows", req.Rows).Msg("shell channel open")
	return NewChannel(newSSHHandle(ch, reqs), clientSession{client}, req.Cols, req.Rows), nil
}

// encodeModes serialises terminal modes the way RFC 4254 8 lays them out.
func encodeModes(modes ssh.TerminalModes) string {
	var buf []byte
	for op, val := range modes {
		buf = append(buf, op, byte(val>>24), byte(val>>16), byte(val>>8), byte(val))
	}
	buf = append(buf, 0) // TTY_OP_END
	return string(buf)
}

func (c *Channel) current() ChannelHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// IsOpen reports whether the channel can still deliver or accept data.
func (c *Channel) IsOpen() bool {
	h := c.current()
	return h != nil && h.IsOpen()
}

// IsEOF reports whether the remote side has finished sending and every
// buffered byte was read.
func (c *Channel) IsEOF() bool {
	h := c.current()
	return h == nil || h.IsEOF()
}

// ReadStdout returns everything currently pending on stdout. With blocking
// set the first read waits for data.
func (c *Channel) ReadStdout(blocking bool) []byte {
	return c.read(false, blocking)
}

// ReadStderr is ReadStdout for the stderr stream.
func (c *Channel) ReadStderr(blocking bool) []byte {
	return c.read(true, blocking)
}

func (c *Channel) read(stderr, blocking bool) []byte {
	h := c.current()
	if h == nil || !h.IsOpen() || h.IsEOF() {
		return nil
	}

	var out []byte
	buf := make([]byte, readChunk)
	block := blocking
	for {
		n, err := h.Read(buf, stderr, block)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if n == 0 || err != nil {
			return out
		}
		block = false
	}
}

// Write sends p to the remote shell's stdin.
func (c *Channel) Write(p []byte) error {
	h := c.current()
	if h == nil {
		return ErrChannelClosed
	}
	if _, err := h.Write(p); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Resize announces a new pty size. Repeating the last size sent is a no-op.
// The size is remembered even if the request could not be delivered.
func (c *Channel) Resize(cols, rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return
	}
	if cols == c.lastCols && rows == c.lastRows {
		return
	}
	c.lastCols, c.lastRows = cols, rows
	if !c.handle.ChangePtySize(cols, rows) {
		log.Warn().Int("cols", cols).Int("rows", rows).Msg("pty resize not delivered")
	}
}

// Size returns the last pty size sent.
func (c *Channel) Size() (cols, rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCols, c.lastRows
}

// SendSignal delivers the signal with the given table index. id must be a
// valid index; use SignalName to check untrusted values.
func (c *Channel) SendSignal(id int) error {
	name := signalNames[id]
	h := c.current()
	if h == nil {
		return ErrChannelClosed
	}
	if !h.RequestSignal(name) {
		return fmt.Errorf("%w: signal %s not delivered", ErrChannelFailed, name)
	}
	log.Debug().Str("signal", name).Msg("signal sent")
	return nil
}

// ExitStatus returns the exit status reported by the remote shell.
func (c *Channel) ExitStatus() (int, bool) {
	if s, ok := c.current().(interface{ ExitStatus() (int, bool) }); ok {
		return s.ExitStatus()
	}
	return 0, false
}

// Transfer moves the channel into a new Channel. The receiver is left empty:
// it reports closed and Close on it does nothing.
func (c *Channel) Transfer() *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	moved := &Channel{
		handle:   c.handle,
		session:  c.session,
		lastCols: c.lastCols,
		lastRows: c.lastRows,
	}
	c.handle, c.session = nil, nil
	return moved
}

// Close sends EOF, closes the channel and disconnects the session. It is
// safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	h, s := c.handle, c.session
	c.handle, c.session = nil, nil
	c.mu.Unlock()

	var errs []error
	if h != nil {
		if err := h.SendEOF(); !ignorableCloseErr(err) {
			errs = append(errs, fmt.Errorf("send eof: %w", err))
		}
		if err := h.Close(); !ignorableCloseErr(err) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if s != nil {
		if err := s.Disconnect(); !ignorableCloseErr(err) {
			errs = append(errs, fmt.Errorf("disconnect: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ignorableCloseErr reports whether err only says the peer got there first.
func ignorableCloseErr(err error) bool {
	return err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
