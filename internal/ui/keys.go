package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap holds the local bindings. Everything except Prefix is only active
// right after the prefix key; all other keys go to the remote shell.
type KeyMap struct {
	Prefix    key.Binding
	Quit      key.Binding
	Interrupt key.Binding
	Terminate key.Binding
	Hangup    key.Binding
	Kill      key.Binding
	Signal    key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Literal   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Prefix: key.NewBinding(
			key.WithKeys("ctrl+]"),
			key.WithHelp("ctrl+]", "command prefix"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "SIGINT"),
		),
		Terminate: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "SIGTERM"),
		),
		Hangup: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "SIGHUP"),
		),
		Kill: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "SIGKILL"),
		),
		Signal: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "signal by name"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "scroll back"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "f"),
			key.WithHelp("pgdn", "scroll forward"),
		),
		Literal: key.NewBinding(
			key.WithKeys("ctrl+]", "]"),
			key.WithHelp("]", "send ctrl+]"),
		),
	}
}

// prefixHelp lists the bindings available after the prefix.
func (k KeyMap) prefixHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Interrupt, k.Terminate, k.Hangup, k.Kill, k.Signal, k.PageUp, k.PageDown, k.Literal}
}

// Sequences for keys that have no single-byte encoding. Function keys
// follow the Linux console, which is also what TERM=dumb hosts tolerate.
var keySequences = map[tea.KeyType]string{
	tea.KeyUp:       "\x1b[A",
	tea.KeyDown:     "\x1b[B",
	tea.KeyRight:    "\x1b[C",
	tea.KeyLeft:     "\x1b[D",
	tea.KeyHome:     "\x1b[1~",
	tea.KeyInsert:   "\x1b[2~",
	tea.KeyDelete:   "\x1b[3~",
	tea.KeyEnd:      "\x1b[4~",
	tea.KeyPgUp:     "\x1b[5~",
	tea.KeyPgDown:   "\x1b[6~",
	tea.KeyShiftTab: "\x1b[Z",
	tea.KeyF1:       "\x1b[[A",
	tea.KeyF2:       "\x1b[[B",
	tea.KeyF3:       "\x1b[[C",
	tea.KeyF4:       "\x1b[[D",
	tea.KeyF5:       "\x1b[[E",
	tea.KeyF6:       "\x1b[17~",
	tea.KeyF7:       "\x1b[18~",
	tea.KeyF8:       "\x1b[19~",
	tea.KeyF9:       "\x1b[20~",
	tea.KeyF10:      "\x1b[21~",
	tea.KeyF11:      "\x1b[23~",
	tea.KeyF12:      "\x1b[24~",
}

// keyText converts a key press into the text sent to the remote shell.
// It returns "" for keys with no encoding.
func keyText(msg tea.KeyMsg) string {
	var s string
	switch {
	case msg.Type == tea.KeyRunes:
		s = string(msg.Runes)
	case msg.Type == tea.KeySpace:
		s = " "
	case msg.Type >= 0 && msg.Type < 32, msg.Type == tea.KeyBackspace:
		// C0 controls, Enter, Tab, Esc and Backspace are their own byte.
		s = string(rune(msg.Type))
	default:
		s = keySequences[msg.Type]
	}
	if s != "" && msg.Alt {
		s = "\x1b" + s
	}
	return s
}
