package session

import (
	"github.com/stlalpha/shellview/internal/poller"
	"github.com/stlalpha/shellview/internal/sshclient"
)

// Event is a transport result delivered to the owner.
type Event interface {
	isEvent()
}

// Ready carries the open channel. Ownership passes to the Session when the
// event is handled.
type Ready struct {
	Channel *sshclient.Channel
}

// ConnectingFailed reports that dial, auth or channel setup failed.
type ConnectingFailed struct {
	Message string
	Err     error
}

// Output is decoded text from the remote shell.
type Output struct {
	poller.Chunk
}

// Closed is sent once polling has stopped.
type Closed struct {
	ExitStatus int
	Exited     bool
}

func (Ready) isEvent()            {}
func (ConnectingFailed) isEvent() {}
func (Output) isEvent()           {}
func (Closed) isEvent()           {}
