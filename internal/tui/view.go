package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/DoyleJ11/stars-party/internal/view"
)

// View implements tea.Model
func (m Model) View() string {
	if m.closed {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("108 Stars Party"))
	if st := m.page.Status; st.Visible {
		b.WriteString("  " + statusStyle(st.State).Render(st.Text))
	}
	if m.page.Loading {
		b.WriteString("  " + DimmedStyle.Render("Loading..."))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderParty())
	b.WriteString("\n")

	left := m.renderRoster()
	right := m.renderDetail()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))
	b.WriteString("\n")

	if m.page.Prompt != "" {
		b.WriteString(PromptStyle.Render(m.page.Prompt+"  "+RenderKeyBinding("y", "yes")+"  "+RenderKeyBinding("n", "no")) + "\n")
	}
	for _, t := range m.page.Toasts {
		b.WriteString(toastStyle(t.Level).Render(t.Text) + "\n")
	}

	b.WriteString(RenderSeparator(m.width) + "\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderParty() string {
	slots := make([]string, 0, len(m.page.Party.Slots))
	for i, s := range m.page.Party.Slots {
		body := DimmedStyle.Render("Empty")
		if !s.Empty {
			body = ItemStyle.Render(s.Name)
		}
		style := SlotStyle
		if s.Selected {
			style = SelectedSlotStyle
		}
		slots = append(slots, style.Render(DimmedStyle.Render("["+slotKeys[i]+"] "+s.Label)+"\n"+body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, slots...)
}

func (m Model) renderRoster() string {
	var b strings.Builder
	if m.filtering {
		b.WriteString(m.filter.View() + "\n")
	} else if q := m.page.Roster.Query; q != "" {
		b.WriteString(DimmedStyle.Render("/ "+q) + "\n")
	}

	if msg := m.page.Roster.Message; msg != "" {
		b.WriteString(DimmedStyle.Render(msg) + "\n")
	}

	idx := 0
	for _, g := range m.page.Roster.Groups {
		b.WriteString(LetterStyle.Render(g.Letter) + "\n")
		for _, e := range g.Entries {
			b.WriteString(renderEntry(e, idx == m.cursor) + "\n")
			idx++
		}
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderEntry(e view.EntryView, atCursor bool) string {
	prefix := NoCursor()
	if atCursor {
		prefix = Cursor()
	}

	style := ItemStyle
	switch {
	case e.Selected:
		style = SelectedStyle
	case e.InParty:
		style = InPartyStyle
	}
	line := prefix + style.Render(e.Name)
	if e.InParty {
		line += InPartyStyle.Render(" ✓")
	}
	if e.Role != "" {
		line += " " + DimmedStyle.Render(e.Role)
	}
	return line
}

func (m Model) renderDetail() string {
	d := m.page.Detail
	width := 40
	if m.width > 0 {
		width = max(20, m.width/2-4)
	}
	body := TitleStyle.Render(d.Name) + "\n" +
		lipgloss.NewStyle().Width(width).Render(d.Recruitment)
	return BoxStyle.Render(body)
}

func (m Model) renderHelp() string {
	if m.filtering {
		return HelpStyle.Render(RenderKeyBinding("enter", "done") + "  " + RenderKeyBinding("esc", "close"))
	}
	keys := []string{
		RenderKeyBinding("↑/↓", "move"),
		RenderKeyBinding("enter", "select"),
		RenderKeyBinding("1-6", "slot"),
		RenderKeyBinding("/", "search"),
		RenderKeyBinding("s", "sync"),
		RenderKeyBinding("x", "dismiss"),
		RenderKeyBinding("q", "quit"),
	}
	return strings.Join(keys, "  ")
}
