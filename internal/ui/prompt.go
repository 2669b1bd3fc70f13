package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

var errPromptCancelled = errors.New("password prompt cancelled")

type promptReply struct {
	password string
	err      error
}

// passwordRequestMsg asks the model to collect a password for an auth
// method the server offered mid-handshake.
type passwordRequestMsg struct {
	reply chan<- promptReply
}

// passwordPrompter returns a sshclient.Target.PasswordPrompt that hands the
// question to the UI and blocks the dial goroutine until it is answered or
// ctx ends.
func passwordPrompter(ctx context.Context, requests chan<- passwordRequestMsg) func() (string, error) {
	return func() (string, error) {
		reply := make(chan promptReply, 1)
		select {
		case requests <- passwordRequestMsg{reply: reply}:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		select {
		case r := <-reply:
			return r.password, r.err
		case <-ctx.Done():
		}
		// An answer given just before ctx ended still wins.
		select {
		case r := <-reply:
			return r.password, r.err
		default:
			return "", ctx.Err()
		}
	}
}

func waitForPasswordRequest(requests <-chan passwordRequestMsg) tea.Cmd {
	return func() tea.Msg {
		return <-requests
	}
}
