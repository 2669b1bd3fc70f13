// Package poller drains a shell channel on a fixed tick and turns what it
// reads into text chunks for the display side.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stlalpha/shellview/internal/terminal"
)

// DefaultInterval is the tick used when Options.Interval is zero.
const DefaultInterval = time.Millisecond

// Stream identifies which remote stream a chunk came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Chunk is decoded text from one read of one stream.
type Chunk struct {
	Stream Stream
	Text   string
}

// Source is the part of a channel the poller reads from.
type Source interface {
	IsOpen() bool
	ReadStdout(blocking bool) []byte
	ReadStderr(blocking bool) []byte
}

// Options configures a Poller.
type Options struct {
	Interval time.Duration
	Charset  terminal.Charset
	// Buffer is the capacity of the output channel.
	Buffer int
}

// Poller reads a Source until it closes.
type Poller struct {
	src      Source
	interval time.Duration
	out      chan Chunk
	done     chan struct{}
	decoders [2]*terminal.Decoder
}

// New creates a Poller. Run starts it.
func New(src Source, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	return &Poller{
		src:      src,
		interval: opts.Interval,
		out:      make(chan Chunk, opts.Buffer),
		done:     make(chan struct{}),
		decoders: [2]*terminal.Decoder{opts.Charset.NewDecoder(), opts.Charset.NewDecoder()},
	}
}

// Output delivers chunks in the order they were read. It is closed when Run
// returns.
func (p *Poller) Output() <-chan Chunk { return p.out }

// Done is closed after Run has returned and Output is closed.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Run polls until the source closes or ctx is cancelled. Each tick reads
// stdout, then stderr, without blocking.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)
	defer close(p.out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.flush(ctx)
			log.Debug().Msg("poll loop cancelled")
			return
		case <-ticker.C:
		}

		if !p.src.IsOpen() {
			p.flush(ctx)
			log.Debug().Msg("poll loop finished: channel closed")
			return
		}
		if !p.emit(ctx, Stdout, p.src.ReadStdout(false)) {
			return
		}
		if !p.emit(ctx, Stderr, p.src.ReadStderr(false)) {
			return
		}
	}
}

// emit decodes raw and sends it. It returns false if ctx ended first.
func (p *Poller) emit(ctx context.Context, s Stream, raw []byte) bool {
	if len(raw) == 0 {
		return true
	}
	return p.send(ctx, Chunk{Stream: s, Text: p.decoders[s].Decode(raw)})
}

func (p *Poller) send(ctx context.Context, c Chunk) bool {
	if c.Text == "" {
		return true
	}
	select {
	case p.out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// flush emits any partial multi-byte sequences left in the decoders.
func (p *Poller) flush(ctx context.Context) {
	for _, s := range []Stream{Stdout, Stderr} {
		text := p.decoders[s].Flush()
		if text == "" {
			continue
		}
		c := Chunk{Stream: s, Text: text}
		if ctx.Err() == nil {
			p.send(ctx, c)
			continue
		}
		// Once cancelled, only deliver if nobody has to wait for it.
		select {
		case p.out <- c:
		default:
		}
	}
}
