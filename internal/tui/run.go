package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/DoyleJ11/stars-party/internal/session"
)

// Run joins s as a viewer and drives the terminal until the user quits, ctx
// ends or the session closes.
func Run(ctx context.Context, s *session.Session, opts ...tea.ProgramOption) error {
	out := make(chan session.Snapshot, 16)
	viewerID := uuid.NewString()

	select {
	case s.Inbox() <- session.Join{ViewerID: viewerID, Outbox: out}:
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
	defer func() {
		select {
		case s.Inbox() <- session.Leave{ViewerID: viewerID}:
		case <-s.Done():
		}
	}()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(s.Inbox(), out, s.Done()), opts...)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
