package sshclient

import (
	"io"
	"sync"
)

// streamBuffer holds bytes pumped from one remote stream until the reader
// picks them up. It lets a reader poll without blocking.
type streamBuffer struct {
	mu     sync.Mutex
	data   []byte
	eof    bool
	notify chan struct{} // signaled (non-blocking) when data or EOF arrives
}

func newStreamBuffer() *streamBuffer {
	return &streamBuffer{notify: make(chan struct{}, 1)}
}

// Write appends p and wakes a blocked reader.
func (b *streamBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
	b.signal()
	return len(p), nil
}

// CloseWrite marks the end of the stream.
func (b *streamBuffer) CloseWrite() {
	b.mu.Lock()
	b.eof = true
	b.mu.Unlock()
	b.signal()
}

func (b *streamBuffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Read copies buffered bytes into p. Without block it returns (0, nil) when
// nothing is buffered. Once the stream has ended and is drained it returns
// io.EOF.
func (b *streamBuffer) Read(p []byte, block bool) (int, error) {
	for {
		b.mu.Lock()
		if len(b.data) > 0 {
			n := copy(p, b.data)
			b.data = b.data[n:]
			if len(b.data) == 0 {
				b.data = nil
			}
			b.mu.Unlock()
			return n, nil
		}
		eof := b.eof
		b.mu.Unlock()

		if eof {
			return 0, io.EOF
		}
		if !block {
			return 0, nil
		}
		<-b.notify
	}
}

// Drained reports whether the stream has ended and every byte was read.
func (b *streamBuffer) Drained() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eof && len(b.data) == 0
}

// Len returns the number of buffered bytes.
func (b *streamBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// pump copies r into b until r fails, then ends the stream.
func pump(r io.Reader, b *streamBuffer) {
	defer b.CloseWrite()
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}
