package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stlalpha/shellview/internal/terminal"
)

// scriptSource hands out queued reads and closes once the queue is empty
// and closeWhenDrained is set.
type scriptSource struct {
	mu               sync.Mutex
	stdout, stderr   [][]byte
	closeWhenDrained bool
	closed           bool
	blockingReads    int
}

func (s *scriptSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeWhenDrained && len(s.stdout) == 0 && len(s.stderr) == 0 {
		s.closed = true
	}
	return !s.closed
}

func (s *scriptSource) next(q *[][]byte, blocking bool) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blocking {
		s.blockingReads++
	}
	if len(*q) == 0 {
		return nil
	}
	b := (*q)[0]
	*q = (*q)[1:]
	return b
}

func (s *scriptSource) ReadStdout(blocking bool) []byte { return s.next(&s.stdout, blocking) }
func (s *scriptSource) ReadStderr(blocking bool) []byte { return s.next(&s.stderr, blocking) }

func collect(t *testing.T, p *Poller) []Chunk {
	t.Helper()
	var got []Chunk
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-p.Output():
			if !ok {
				return got
			}
			got = append(got, c)
		case <-timeout:
			t.Fatal("poller did not finish")
		}
	}
}

func TestRunDeliversInOrderAndStopsWhenClosed(t *testing.T) {
	src := &scriptSource{
		stdout:           [][]byte{[]byte("one "), []byte("two")},
		stderr:           [][]byte{[]byte("warn")},
		closeWhenDrained: true,
	}
	p := New(src, Options{})
	go p.Run(context.Background())

	got := collect(t, p)
	<-p.Done()

	require.Len(t, got, 3)
	assert.Equal(t, Chunk{Stdout, "one "}, got[0])
	assert.Equal(t, Chunk{Stderr, "warn"}, got[1])
	assert.Equal(t, Chunk{Stdout, "two"}, got[2])
	assert.Zero(t, src.blockingReads)
}

func TestRunReassemblesSplitRunes(t *testing.T) {
	snow := []byte("☃")
	src := &scriptSource{
		stdout:           [][]byte{snow[:1], snow[1:]},
		closeWhenDrained: true,
	}
	p := New(src, Options{Charset: terminal.CharsetUTF8})
	go p.Run(context.Background())

	got := collect(t, p)

	require.Len(t, got, 1)
	assert.Equal(t, "☃", got[0].Text)
}

func TestRunFlushesTruncatedRuneOnClose(t *testing.T) {
	src := &scriptSource{
		stdout:           [][]byte{[]byte("ok"), {0xe2}},
		closeWhenDrained: true,
	}
	p := New(src, Options{})
	go p.Run(context.Background())

	got := collect(t, p)

	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].Text)
	assert.Equal(t, "�", got[1].Text)
}

func TestRunDecodesCharset(t *testing.T) {
	src := &scriptSource{
		stdout:           [][]byte{{0xc9, 0xcd, 0xbb}},
		closeWhenDrained: true,
	}
	p := New(src, Options{Charset: terminal.CharsetCP437})
	go p.Run(context.Background())

	got := collect(t, p)

	require.Len(t, got, 1)
	assert.Equal(t, "╔═╗", got[0].Text)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &scriptSource{}
	p := New(src, Options{Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	cancel()

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poller ignored cancellation")
	}
	_, ok := <-p.Output()
	assert.False(t, ok, "output must be closed")
}

func TestStreamString(t *testing.T) {
	assert.Equal(t, "stdout", Stdout.String())
	assert.Equal(t, "stderr", Stderr.String())
}
