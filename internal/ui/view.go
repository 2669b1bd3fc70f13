package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stlalpha/shellview/internal/session"
	"github.com/stlalpha/shellview/internal/terminal"
)

var (
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("8")).
			Bold(true)
	statusDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Background(lipgloss.Color("8"))
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("1")).
			Bold(true)
	promptLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("14")).
				Bold(true)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modePassword {
		return m.viewPassword()
	}
	return m.viewTerminal() + "\n" + m.viewStatus()
}

func (m Model) viewPassword() string {
	var b strings.Builder
	b.WriteString(promptLabelStyle.Render("Password for " + targetLabel(m.opts.Session.Target) + ":"))
	b.WriteByte(' ')
	b.WriteString(m.prompt.View())
	b.WriteString("\n\n")
	hint := " enter connect · esc quit "
	if m.pending != nil {
		hint = " enter send · esc cancel "
	}
	b.WriteString(statusDimStyle.Render(hint))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

// segment is one screen row: a slice of a logical line.
type segment struct {
	line  int
	start int
	cells terminal.Line
}

func (m Model) showCursor() bool {
	return m.scroll == 0 && m.sess.State() == session.StateConnected
}

// visibleSegments returns the screen rows that fit in the viewport, bottom
// aligned and shifted back by the scroll offset. A cursor sitting just past
// a line that fills its last row gets an empty row of its own.
func (m Model) visibleSegments() []segment {
	cols := max(1, m.width)
	want := m.termRows() + m.scroll
	cursor := m.sess.Cursor()
	showCursor := m.showCursor()

	// Every line yields at least one row, so the last want lines are enough.
	var segs []segment
	m.sess.VisitRows(m.sess.Len()-want, func(index int, line terminal.Line) bool {
		n := terminal.WrappedRows(line, cols)
		if showCursor && index == cursor.Line {
			n = max(n, cursor.Char/cols+1)
		}
		for r := 0; r < n; r++ {
			start := r * cols
			if start >= len(line) {
				segs = append(segs, segment{line: index, start: start})
				continue
			}
			end := min(len(line), start+cols)
			segs = append(segs, segment{line: index, start: start, cells: line[start:end]})
		}
		return true
	})

	end := max(0, len(segs)-m.scroll)
	begin := max(0, end-m.termRows())
	return segs[begin:end]
}

func (m Model) viewTerminal() string {
	cols := max(1, m.width)
	pal := m.sess.Palette()
	blank := lipgloss.NewStyle().
		Foreground(lipgloss.Color(pal.Foreground.Hex())).
		Background(lipgloss.Color(pal.Background.Hex()))

	styles := make(map[terminal.Style]lipgloss.Style)
	styleFor := func(s terminal.Style) lipgloss.Style {
		if ls, ok := styles[s]; ok {
			return ls
		}
		ls := lipgloss.NewStyle().
			Foreground(lipgloss.Color(s.Foreground.Hex())).
			Background(lipgloss.Color(s.Background.Hex())).
			Bold(s.Bold).
			Italic(s.Italic).
			Underline(s.Underline)
		styles[s] = ls
		return ls
	}

	cursor := m.sess.Cursor()
	showCursor := m.showCursor()

	segs := m.visibleSegments()
	rows := make([]string, 0, m.termRows())
	for _, seg := range segs {
		cursorCol := -1
		if showCursor && seg.line == cursor.Line && cursor.Char >= seg.start && cursor.Char < seg.start+cols {
			cursorCol = cursor.Char - seg.start
		}
		rows = append(rows, renderSegment(seg.cells, cols, cursorCol, styleFor, blank))
	}
	for len(rows) < m.termRows() {
		rows = append(rows, blank.Render(strings.Repeat(" ", cols)))
	}
	return strings.Join(rows, "\n")
}

// renderSegment renders one row, batching runs of equal style.
func renderSegment(cells terminal.Line, cols, cursorCol int, styleFor func(terminal.Style) lipgloss.Style, blank lipgloss.Style) string {
	var b strings.Builder
	var run []rune
	var runStyle terminal.Style
	flush := func() {
		if len(run) > 0 {
			b.WriteString(styleFor(runStyle).Render(string(run)))
			run = run[:0]
		}
	}

	for i, c := range cells {
		if i == cursorCol {
			flush()
			b.WriteString(styleFor(c.Style).Reverse(true).Render(string(c.Rune)))
			continue
		}
		if len(run) > 0 && c.Style != runStyle {
			flush()
		}
		runStyle = c.Style
		run = append(run, c.Rune)
	}
	flush()

	pad := cols - len(cells)
	if pad <= 0 {
		return b.String()
	}
	if cursorCol >= len(cells) {
		before := cursorCol - len(cells)
		b.WriteString(blank.Render(strings.Repeat(" ", before)))
		b.WriteString(blank.Reverse(true).Render(" "))
		pad -= before + 1
	}
	if pad > 0 {
		b.WriteString(blank.Render(strings.Repeat(" ", pad)))
	}
	return b.String()
}

func (m Model) viewStatus() string {
	width := max(1, m.width)
	if m.sess == nil {
		return statusDimStyle.Width(width).Render("")
	}

	state := m.sess.State()
	if (state == session.StateFailed || state == session.StateClosed) && m.notice != "" {
		return bannerStyle.Width(width).MaxWidth(width).MaxHeight(1).Render(" " + m.notice + " · q quit")
	}
	if m.mode == modeSignal {
		return statusDimStyle.Width(width).MaxWidth(width).MaxHeight(1).Render(" " + m.sigInput.View())
	}
	if m.prefix {
		parts := make([]string, 0, 8)
		for _, b := range m.keys.prefixHelp() {
			h := b.Help()
			parts = append(parts, h.Key+" "+h.Desc)
		}
		return statusDimStyle.Width(width).MaxWidth(width).MaxHeight(1).Render(" " + strings.Join(parts, " · "))
	}

	left := fmt.Sprintf(" %s │ TERM=%s │ %d rows │ %s",
		targetLabel(m.sess.Target), m.sess.ReportedTerminalName(), m.sess.RowCount(), state)
	if m.scroll > 0 {
		left += fmt.Sprintf(" │ -%d", m.scroll)
	}
	right := m.keys.Prefix.Help().Key + " menu "
	if m.notice != "" {
		right = m.notice + " "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return statusBarStyle.Width(width).MaxWidth(width).MaxHeight(1).Render(left)
	}
	return statusBarStyle.Render(left) + statusDimStyle.Render(strings.Repeat(" ", gap)+right)
}
