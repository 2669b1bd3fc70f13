// Package session ties one remote shell to one terminal interpreter.
//
// A Session runs the transport (dial, channel setup, polling) on its own
// goroutine and hands results back as Events. The owner, usually the UI
// event loop, feeds every Event to Handle; that is the only place where the
// interpreter is mutated, so the grid needs no locking.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stlalpha/shellview/internal/poller"
	"github.com/stlalpha/shellview/internal/sshclient"
	"github.com/stlalpha/shellview/internal/terminal"
)

// ErrNotConnected is returned when input is sent before the channel is up
// or after it has gone.
var ErrNotConnected = errors.New("session: not connected")

// KeepaliveOff disables keepalive pings.
const KeepaliveOff = "off"

// State is the lifecycle stage of a Session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Connector dials the target and opens a shell channel on it. The returned
// Requester, if any, is used for keepalives.
type Connector func(ctx context.Context, target sshclient.Target, pty sshclient.PtyRequest) (*sshclient.Channel, sshclient.Requester, error)

// Options configures a Session.
type Options struct {
	Target  sshclient.Target
	Variant terminal.Variant
	Charset terminal.Charset
	Palette *terminal.Palette

	Columns int
	Rows    int

	PollInterval      time.Duration
	KeepaliveSchedule string

	// Connect replaces the SSH connector, e.g. in tests.
	Connect Connector

	OnNewText         func()
	OnRowCountChanged func(rows int)
}

// Session is a display-facing wrapper around one remote shell.
type Session struct {
	ID        uuid.UUID
	Target    sshclient.Target
	StartTime time.Time

	opts    Options
	interp  *terminal.Interpreter
	events  chan Event
	channel *sshclient.Channel
	state   State
	lastErr string
	cols    int
	rows    int

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates an idle Session. Connect starts it.
func New(opts Options) *Session {
	if opts.Columns <= 0 {
		opts.Columns = terminal.DefaultColumns
	}
	if opts.Rows <= 0 {
		opts.Rows = 24
	}
	if opts.Connect == nil {
		opts.Connect = DialAndOpen
	}

	iopts := []terminal.Option{
		terminal.WithColumns(opts.Columns),
		terminal.WithOnNewText(opts.OnNewText),
		terminal.WithOnRowCountChanged(opts.OnRowCountChanged),
	}
	if opts.Palette != nil {
		iopts = append(iopts, terminal.WithPalette(*opts.Palette))
	}

	return &Session{
		ID:        uuid.New(),
		Target:    opts.Target,
		StartTime: time.Now(),
		opts:      opts,
		interp:    terminal.New(opts.Variant, iopts...),
		events:    make(chan Event, 256),
		cols:      opts.Columns,
		rows:      opts.Rows,
		done:      make(chan struct{}),
	}
}

// DialAndOpen is the default Connector.
func DialAndOpen(ctx context.Context, target sshclient.Target, pty sshclient.PtyRequest) (*sshclient.Channel, sshclient.Requester, error) {
	client, err := sshclient.Dial(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	ch, err := sshclient.Open(client, pty)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return ch, client, nil
}

// Connect starts the transport goroutine. Calls after the first do nothing.
func (s *Session) Connect(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		s.state = StateConnecting
		pty := sshclient.PtyRequest{
			Term: s.interp.ReportedName(),
			Cols: s.cols,
			Rows: s.rows,
		}
		go s.run(ctx, pty)
	})
}

// Events delivers transport results. The owner passes each one to Handle.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed once the transport goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) run(ctx context.Context, pty sshclient.PtyRequest) {
	defer close(s.done)

	log.Info().Str("session", s.ID.String()).Str("addr", s.Target.Addr()).Str("term", pty.Term).Msg("connecting")
	ch, req, err := s.opts.Connect(ctx, s.Target, pty)
	if err != nil {
		log.Error().Err(err).Str("session", s.ID.String()).Msg("connect failed")
		s.emit(ctx, ConnectingFailed{Message: describe(s.Target, err), Err: err})
		return
	}
	if !s.emit(ctx, Ready{Channel: ch}) {
		ch.Close()
		return
	}

	pctx, stop := context.WithCancel(ctx)
	defer stop()

	if req != nil && s.opts.KeepaliveSchedule != KeepaliveOff {
		k, err := sshclient.StartKeepalive(req, s.opts.KeepaliveSchedule, func(error) { stop() })
		if err != nil {
			log.Warn().Err(err).Msg("keepalive disabled")
		} else {
			defer k.Stop()
		}
	}

	p := poller.New(ch, poller.Options{Interval: s.opts.PollInterval, Charset: s.opts.Charset})
	go p.Run(pctx)

	delivering := true
	for c := range p.Output() {
		if delivering {
			delivering = s.emit(ctx, Output{Chunk: c})
		}
	}
	<-p.Done()

	closed := Closed{}
	closed.ExitStatus, closed.Exited = ch.ExitStatus()
	log.Info().Str("session", s.ID.String()).Bool("exited", closed.Exited).Int("status", closed.ExitStatus).Msg("channel closed")
	s.emit(ctx, closed)
}

func (s *Session) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// describe turns a setup error into the one-line message shown to the user.
func describe(t sshclient.Target, err error) string {
	who := t.Addr()
	if t.User != "" {
		who = t.User + "@" + who
	}
	switch {
	case errors.Is(err, sshclient.ErrAuthFailed):
		return fmt.Sprintf("Authentication failed for %s: %v", who, err)
	case errors.Is(err, sshclient.ErrChannelFailed):
		return fmt.Sprintf("Could not start a shell on %s: %v", who, err)
	default:
		return fmt.Sprintf("Could not connect to %s: %v", who, err)
	}
}

// Handle applies one Event on the owner's goroutine.
func (s *Session) Handle(ev Event) {
	switch e := ev.(type) {
	case Ready:
		s.channel = e.Channel
		s.state = StateConnected
		s.channel.Resize(s.cols, s.rows)
	case ConnectingFailed:
		s.state = StateFailed
		s.lastErr = e.Message
	case Output:
		s.interp.Consume(e.Text)
	case Closed:
		if s.state != StateFailed {
			s.state = StateClosed
		}
	}
}

// State returns the lifecycle stage as seen by the owner.
func (s *Session) State() State { return s.state }

// LastError returns the message of the last setup failure.
func (s *Session) LastError() string { return s.lastErr }

// SetViewport reflows the grid for a new viewport and tells the remote pty.
func (s *Session) SetViewport(cols, rows int) {
	if cols > 0 {
		s.cols = cols
	}
	if rows > 0 {
		s.rows = rows
	}
	s.interp.Reflow(s.cols)
	if s.channel != nil {
		s.channel.Resize(s.cols, s.rows)
	}
}

// SetViewportColumns is SetViewport keeping the current row count.
func (s *Session) SetViewportColumns(cols int) {
	s.SetViewport(cols, s.rows)
}

// Viewport returns the current viewport size.
func (s *Session) Viewport() (cols, rows int) { return s.cols, s.rows }

// SendKeyText writes text to the remote shell in the session charset.
func (s *Session) SendKeyText(text string) error {
	if s.channel == nil || s.state != StateConnected {
		return ErrNotConnected
	}
	return s.channel.Write(s.opts.Charset.Encode(text))
}

// SendSignal delivers a signal from the fixed signal table.
func (s *Session) SendSignal(id int) error {
	if s.channel == nil || s.state != StateConnected {
		return ErrNotConnected
	}
	return s.channel.SendSignal(id)
}

// Rows returns a snapshot of the grid.
func (s *Session) Rows() []terminal.Line { return s.interp.Rows() }

// VisitRows walks the grid without copying it. See Interpreter.VisitRows.
func (s *Session) VisitRows(from int, fn func(index int, line terminal.Line) bool) {
	s.interp.VisitRows(from, fn)
}

// Len returns the number of logical lines.
func (s *Session) Len() int { return s.interp.Len() }

// RowCount returns the wrap-aware row count.
func (s *Session) RowCount() int { return s.interp.RowCount() }

// Cursor returns the interpreter cursor.
func (s *Session) Cursor() terminal.Cursor { return s.interp.Cursor() }

// ReportedTerminalName returns the TERM announced to the remote side.
func (s *Session) ReportedTerminalName() string { return s.interp.ReportedName() }

// Palette returns the active colour palette.
func (s *Session) Palette() terminal.Palette { return s.interp.Palette() }

// SetPalette swaps the colour palette for new output.
func (s *Session) SetPalette(p terminal.Palette) { s.interp.SetPalette(p) }

// Close stops polling, waits for the transport goroutine, then closes the
// channel and disconnects. It must be called from the owner's goroutine.
func (s *Session) Close() error {
	started := false
	s.startOnce.Do(func() { close(s.done) })
	if s.cancel != nil {
		started = true
		s.cancel()
	}
	<-s.done

	// A Ready the owner never handled still carries a live channel.
drain:
	for started {
		select {
		case ev := <-s.events:
			if r, ok := ev.(Ready); ok && r.Channel != s.channel {
				r.Channel.Close()
			}
		default:
			break drain
		}
	}

	var err error
	if s.channel != nil {
		err = s.channel.Close()
	}
	if s.state != StateFailed {
		s.state = StateClosed
	}
	return err
}
