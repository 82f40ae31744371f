package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DoyleJ11/stars-party/internal/roster"
	"github.com/DoyleJ11/stars-party/internal/session"
	"github.com/DoyleJ11/stars-party/internal/view"
)

// Model is the terminal view of one session. It never changes client state
// itself; keys become session messages and the next snapshot redraws.
type Model struct {
	inbox     chan<- session.Msg
	snaps     <-chan session.Snapshot
	done      <-chan struct{}
	page      view.Page
	version   int
	cursor    int
	filtering bool
	filter    textinput.Model
	width     int
	height    int
	closed    bool
}

// Messages
type snapshotMsg struct{ snap session.Snapshot }
type closedMsg struct{}

// New builds a model that sends gestures to inbox and redraws from snaps.
// Sends are abandoned once done closes.
func New(inbox chan<- session.Msg, snaps <-chan session.Snapshot, done <-chan struct{}) Model {
	ti := textinput.New()
	ti.Placeholder = "Search characters..."
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 30

	return Model{
		inbox:  inbox,
		snaps:  snaps,
		done:   done,
		filter: ti,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.snaps)
}

func waitForSnapshot(ch <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg{snap: snap}
	}
}

func (m Model) send(msg session.Msg) tea.Cmd {
	inbox, done := m.inbox, m.done
	return func() tea.Msg {
		select {
		case inbox <- msg:
		case <-done:
		}
		return nil
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		// Snapshots arrive in order; a stale one can only be the join replay.
		if msg.snap.Version >= m.version {
			m.version = msg.snap.Version
			m.page = msg.snap.Page
			m.clampCursor()
		}
		return m, waitForSnapshot(m.snaps)

	case closedMsg:
		m.closed = true
		return m, tea.Quit
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.filtering {
		return m.handleFilterKey(msg)
	}
	if m.page.Prompt != "" {
		return m.handlePromptKey(msg)
	}

	switch key := msg.String(); key {
	case "q":
		return m, tea.Quit

	case "/":
		m.filtering = true
		m.filter.SetValue(m.page.Roster.Query)
		m.filter.CursorEnd()
		return m, tea.Batch(m.filter.Focus(), textinput.Blink)

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.entries())-1 {
			m.cursor++
		}

	case "enter":
		entries := m.entries()
		if m.cursor < len(entries) {
			return m, m.send(session.Pick{Name: entries[m.cursor].Name})
		}

	case "1", "2", "3", "4", "5", "6":
		return m, m.send(session.Target{Slot: int(key[0] - '1')})

	case "s":
		return m, m.send(session.Resync{})

	case "x":
		if n := len(m.page.Toasts); n > 0 {
			return m, m.send(session.Dismiss{ToastID: m.page.Toasts[n-1].ID})
		}

	case "esc":
		if m.page.Roster.Query != "" {
			return m, m.send(session.Filter{Query: ""})
		}
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if q := m.filter.Value(); q != before {
		m.cursor = 0
		return m, tea.Batch(cmd, m.send(session.Filter{Query: q}))
	}
	return m, cmd
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return m, m.send(session.Answer{Yes: true})
	case "n", "N", "esc":
		return m, m.send(session.Answer{Yes: false})
	}
	return m, nil
}

func (m Model) entries() []view.EntryView {
	var out []view.EntryView
	for _, g := range m.page.Roster.Groups {
		out = append(out, g.Entries...)
	}
	return out
}

func (m *Model) clampCursor() {
	n := len(m.entries())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// slotKeys lists the keys that target party slots, in slot order.
var slotKeys = func() []string {
	keys := make([]string, roster.PartySize)
	for i := range keys {
		keys[i] = string(rune('1' + i))
	}
	return keys
}()
