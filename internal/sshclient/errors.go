package sshclient

import "errors"

var (
	// ErrConnectFailed is returned when the TCP connection or SSH handshake
	// cannot be established.
	ErrConnectFailed = errors.New("sshclient: connect failed")

	// ErrAuthFailed is returned when every offered auth method was rejected.
	ErrAuthFailed = errors.New("sshclient: authentication failed")

	// ErrChannelFailed is returned when the session channel, pty or shell
	// request is refused.
	ErrChannelFailed = errors.New("sshclient: channel setup failed")

	// ErrChannelClosed is returned by operations on a closed or transferred
	// Channel.
	ErrChannelClosed = errors.New("sshclient: channel closed")
)
