// Package ui is the bubbletea front end for a session: it renders the grid,
// turns key presses into remote input and owns the session event loop.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stlalpha/shellview/internal/logging"
	"github.com/stlalpha/shellview/internal/session"
	"github.com/stlalpha/shellview/internal/sshclient"
	"github.com/stlalpha/shellview/internal/terminal"
)

type mode int

const (
	modePassword mode = iota
	modeTerminal
	modeSignal
)

// Options configures the Model.
type Options struct {
	Session session.Options
	// AskPassword shows a password prompt before connecting.
	AskPassword bool
	// Registry, if set, tracks the session so the caller can release it
	// after the program exits.
	Registry *session.Registry
	Keys     KeyMap
}

// ConfigReloadedMsg carries settings that can change while connected.
type ConfigReloadedMsg struct {
	Palette terminal.Palette
	Debug   bool
}

type connectMsg struct{}

type eventMsg struct{ ev session.Event }

type transportDoneMsg struct{}

// Model is the top-level bubbletea model.
type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     Options
	keys     KeyMap
	sess     *session.Session
	prompt   textinput.Model
	sigInput textinput.Model
	mode     mode

	// requests carries password questions from the dial goroutine;
	// pending is the reply channel of the one on screen.
	requests chan passwordRequestMsg
	pending  chan<- promptReply

	width    int
	height   int
	prefix   bool
	scroll   int
	notice   string
	quitting bool
}

// New creates the model. The session is created immediately unless a
// password has to be asked for first.
func New(ctx context.Context, opts Options) Model {
	if len(opts.Keys.Prefix.Keys()) == 0 {
		opts.Keys = DefaultKeyMap()
	}

	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 256
	ti.Width = 32
	ti.Prompt = ""

	si := textinput.New()
	si.Placeholder = "TERM"
	si.CharLimit = 16
	si.Width = 10
	si.Prompt = "signal: "

	ctx, cancel := context.WithCancel(ctx)
	requests := make(chan passwordRequestMsg)
	if opts.Session.Target.PasswordPrompt == nil {
		opts.Session.Target.PasswordPrompt = passwordPrompter(ctx, requests)
	}

	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		keys:     opts.Keys,
		prompt:   ti,
		sigInput: si,
		requests: requests,
		width:    opts.Session.Columns,
		height:   opts.Session.Rows + 1,
	}
	if opts.AskPassword {
		m.mode = modePassword
		m.prompt.Focus()
	} else {
		m.startSession()
	}
	return m
}

// Session returns the current session, nil while the password prompt is up.
func (m Model) Session() *session.Session { return m.sess }

func (m *Model) startSession() {
	m.mode = modeTerminal
	m.sess = session.New(m.opts.Session)
	if m.opts.Registry != nil {
		m.opts.Registry.Register(m.sess)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	title := tea.SetWindowTitle("shellview " + targetLabel(m.opts.Session.Target))
	asked := waitForPasswordRequest(m.requests)
	if m.mode == modePassword {
		return tea.Batch(title, asked, textinput.Blink)
	}
	return tea.Batch(title, asked, connect)
}

func connect() tea.Msg { return connectMsg{} }

// waitForEvent blocks until the session produces an event or its transport
// goroutine is gone with nothing left to deliver.
func waitForEvent(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-s.Events():
			return eventMsg{ev}
		case <-s.Done():
			select {
			case ev := <-s.Events():
				return eventMsg{ev}
			default:
				return transportDoneMsg{}
			}
		}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.sess != nil {
			m.sess.SetViewport(m.width, m.termRows())
			m.clampScroll()
		}
		return m, nil

	case connectMsg:
		if m.sess == nil {
			return m, nil
		}
		m.sess.SetViewport(m.width, m.termRows())
		m.sess.Connect(m.ctx)
		return m, waitForEvent(m.sess)

	case eventMsg:
		return m.handleEvent(msg.ev)

	case transportDoneMsg:
		return m, nil

	case passwordRequestMsg:
		m.pending = msg.reply
		m.mode = modePassword
		m.prefix = false
		m.prompt.Reset()
		return m, m.prompt.Focus()

	case ConfigReloadedMsg:
		logging.SetDebug(msg.Debug)
		if m.sess != nil {
			m.sess.SetPalette(msg.Palette)
		}
		m.opts.Session.Palette = &msg.Palette
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modePassword:
			return m.updatePassword(msg)
		case modeSignal:
			return m.updateSignal(msg)
		}
		return m.updateTerminal(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case modePassword:
		m.prompt, cmd = m.prompt.Update(msg)
	case modeSignal:
		m.sigInput, cmd = m.sigInput.Update(msg)
	}
	return m, cmd
}

func (m Model) handleEvent(ev session.Event) (tea.Model, tea.Cmd) {
	m.sess.Handle(ev)
	switch e := ev.(type) {
	case session.ConnectingFailed:
		m.notice = e.Message
	case session.Closed:
		if e.Exited {
			m.notice = fmt.Sprintf("Disconnected (exit status %d)", e.ExitStatus)
		} else {
			m.notice = "Disconnected"
		}
	case session.Output:
		if m.scroll > 0 {
			m.clampScroll()
		}
	}
	logging.Debug("ui: handled %T, %d rows", ev, m.sess.RowCount())
	return m, waitForEvent(m.sess)
}

func (m Model) updatePassword(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		password := m.prompt.Value()
		m.prompt.Reset()
		m.prompt.Blur()
		if m.pending != nil {
			m.answer(promptReply{password: password})
			return m, waitForPasswordRequest(m.requests)
		}
		m.opts.Session.Target.Password = password
		m.startSession()
		return m, connect
	case tea.KeyEsc, tea.KeyCtrlC:
		if m.pending != nil {
			m.prompt.Reset()
			m.prompt.Blur()
			m.answer(promptReply{err: errPromptCancelled})
			return m, waitForPasswordRequest(m.requests)
		}
		return m.quit()
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// answer replies to the password question on screen and returns to the
// terminal view.
func (m *Model) answer(r promptReply) {
	m.pending <- r
	m.pending = nil
	m.mode = modeTerminal
}

func (m Model) updateSignal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		name := strings.ToUpper(strings.TrimSpace(m.sigInput.Value()))
		m.sigInput.Reset()
		m.sigInput.Blur()
		m.mode = modeTerminal
		if id, ok := sshclient.SignalID(name); ok {
			m.signal(id)
		} else {
			m.notice = fmt.Sprintf("unknown signal %q", name)
		}
		return m, nil
	case tea.KeyEsc, tea.KeyCtrlC:
		m.sigInput.Reset()
		m.sigInput.Blur()
		m.mode = modeTerminal
		return m, nil
	}
	var cmd tea.Cmd
	m.sigInput, cmd = m.sigInput.Update(msg)
	return m, cmd
}

func (m Model) updateTerminal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prefix {
		m.prefix = false
		return m.updatePrefixed(msg)
	}
	if key.Matches(msg, m.keys.Prefix) {
		m.prefix = true
		return m, nil
	}

	switch m.sess.State() {
	case session.StateFailed, session.StateClosed:
		// Nothing to type into; any of these leaves.
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc, tea.KeyCtrlC:
			return m.quit()
		}
		if msg.String() == "q" {
			return m.quit()
		}
		return m, nil
	}

	text := keyText(msg)
	if text == "" {
		return m, nil
	}
	m.scroll = 0
	if err := m.sess.SendKeyText(text); err != nil {
		logging.Debug("ui: key dropped: %v", err)
	}
	return m, nil
}

func (m Model) updatePrefixed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Interrupt):
		m.signal(sshclient.SignalINT)
	case key.Matches(msg, m.keys.Terminate):
		m.signal(sshclient.SignalTERM)
	case key.Matches(msg, m.keys.Hangup):
		m.signal(sshclient.SignalHUP)
	case key.Matches(msg, m.keys.Kill):
		m.signal(sshclient.SignalKILL)
	case key.Matches(msg, m.keys.Signal):
		m.mode = modeSignal
		return m, m.sigInput.Focus()
	case key.Matches(msg, m.keys.PageUp):
		m.scroll += m.page()
		m.clampScroll()
	case key.Matches(msg, m.keys.PageDown):
		m.scroll -= m.page()
		m.clampScroll()
	case key.Matches(msg, m.keys.Literal):
		if err := m.sess.SendKeyText("\x1d"); err != nil {
			logging.Debug("ui: key dropped: %v", err)
		}
	}
	return m, nil
}

func (m *Model) signal(id int) {
	name, _ := sshclient.SignalName(id)
	if err := m.sess.SendSignal(id); err != nil {
		m.notice = fmt.Sprintf("SIG%s not delivered: %v", name, err)
		return
	}
	m.notice = "sent SIG" + name
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.pending != nil {
		m.answer(promptReply{err: errPromptCancelled})
	}
	// Unblocks a dial goroutine still waiting on the password prompt.
	m.cancel()
	if m.sess != nil {
		m.sess.Close()
		if m.opts.Registry != nil {
			m.opts.Registry.Unregister(m.sess.ID)
		}
	}
	return m, tea.Quit
}

// termRows is the height left for the grid once the status bar is drawn.
func (m Model) termRows() int {
	return max(1, m.height-1)
}

func (m Model) page() int {
	return max(1, m.termRows()-1)
}

func (m *Model) clampScroll() {
	limit := max(0, m.sess.RowCount()-m.termRows())
	m.scroll = min(max(0, m.scroll), limit)
}

func targetLabel(t sshclient.Target) string {
	if t.User != "" {
		return t.User + "@" + t.Addr()
	}
	return t.Addr()
}
