// Package view turns client state into plain view models. Nothing here does
// I/O; the web page and the terminal UI both render from these values.
package view

import (
	"fmt"
	"time"

	"github.com/DoyleJ11/stars-party/internal/notify"
	"github.com/DoyleJ11/stars-party/internal/roster"
	"github.com/DoyleJ11/stars-party/internal/store"
)

const PlaceholderImage = "/static/img/placeholder.png"

const (
	noRosterText      = "No character data available"
	noDetailName      = "Select a character"
	noDetailHint      = "Click on a character name from the 108 Stars list to view their recruitment information."
	noRecruitmentText = "No recruitment information available."
)

type EntryView struct {
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	InParty  bool   `json:"in_party"`
	Selected bool   `json:"selected"`
}

type GroupView struct {
	Letter  string      `json:"letter"`
	Entries []EntryView `json:"entries"`
}

type RosterView struct {
	Query     string      `json:"query,omitempty"`
	Groups    []GroupView `json:"groups"`
	Empty     bool        `json:"empty"`
	NoMatches bool        `json:"no_matches"`
	Message   string      `json:"message,omitempty"`
}

type SlotView struct {
	Index    int    `json:"index"`
	Label    string `json:"label"`
	Empty    bool   `json:"empty"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Selected bool   `json:"selected"`
}

type PartyView struct {
	Slots [roster.PartySize]SlotView `json:"slots"`
}

type DetailView struct {
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	Recruitment string `json:"recruitment"`
	Empty       bool   `json:"empty"`
}

type ToastView struct {
	ID    string       `json:"id"`
	Level notify.Level `json:"level"`
	Text  string       `json:"text"`
}

type StatusView struct {
	State   notify.ConnState `json:"state"`
	Text    string           `json:"text"`
	Visible bool             `json:"visible"`
}

type Page struct {
	Version int         `json:"version"`
	Roster  RosterView  `json:"roster"`
	Party   PartyView   `json:"party"`
	Detail  DetailView  `json:"detail"`
	Toasts  []ToastView `json:"toasts"`
	Status  StatusView  `json:"status"`
	Loading bool        `json:"loading"`
	Prompt  string      `json:"prompt,omitempty"`
}

// RenderRoster groups the filtered roster and marks party members and the
// selection. Membership is by name equality.
func RenderRoster(r roster.Roster, p roster.Party, query, selected string) RosterView {
	v := RosterView{Query: query, Groups: []GroupView{}}
	if len(r) == 0 {
		v.Empty = true
		v.Message = noRosterText
		return v
	}

	filtered := roster.Filter(r, query)
	if len(filtered) == 0 {
		v.NoMatches = true
		v.Message = fmt.Sprintf("No characters found matching \"%s\"", query)
		return v
	}

	for _, g := range roster.GroupByLetter(filtered) {
		gv := GroupView{Letter: g.Letter, Entries: make([]EntryView, 0, len(g.Members))}
		for _, c := range g.Members {
			gv.Entries = append(gv.Entries, EntryView{
				Name:     c.Name,
				Role:     c.Role,
				InParty:  p.Has(c.Name),
				Selected: selected != "" && c.Name == selected,
			})
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

// RenderParty always yields exactly PartySize slots in index order.
func RenderParty(p roster.Party, selected string) PartyView {
	var v PartyView
	for i, m := range p {
		s := SlotView{Index: i, Label: fmt.Sprintf("Slot %d", i+1), Empty: m == nil}
		if m != nil {
			s.Name = m.Name
			s.ImageURL = imageOr(m.ImageURL)
			s.Selected = selected != "" && m.Name == selected
		}
		v.Slots[i] = s
	}
	return v
}

func RenderDetail(d store.Detail, ok bool) DetailView {
	if !ok {
		return DetailView{
			Name:        noDetailName,
			ImageURL:    PlaceholderImage,
			Recruitment: noDetailHint,
			Empty:       true,
		}
	}
	rec := d.Recruitment
	if rec == "" {
		rec = noRecruitmentText
	}
	return DetailView{
		Name:        d.Character.Name,
		ImageURL:    imageOr(d.Character.ImageURL),
		Recruitment: rec,
	}
}

func RenderToasts(toasts []notify.Toast) []ToastView {
	out := make([]ToastView, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, ToastView{ID: t.ID, Level: t.Level, Text: t.Text})
	}
	return out
}

func RenderStatus(s notify.Status, now time.Time) StatusView {
	return StatusView{State: s.State, Text: s.Text, Visible: s.Visible(now)}
}

// Input is everything a page render reads.
type Input struct {
	Version int
	Store   *store.Store
	Toasts  []notify.Toast
	Status  notify.Status
	Prompt  string
	Now     time.Time
}

func Render(in Input) Page {
	st := in.Store
	selected := ""
	if c, ok := st.Selection(); ok {
		selected = c.Name
	}
	party := st.Party()
	detail, ok := st.Detail()

	return Page{
		Version: in.Version,
		Roster:  RenderRoster(st.Roster(), party, st.Filter(), selected),
		Party:   RenderParty(party, selected),
		Detail:  RenderDetail(detail, ok),
		Toasts:  RenderToasts(in.Toasts),
		Status:  RenderStatus(in.Status, in.Now),
		Loading: st.Loading(),
		Prompt:  in.Prompt,
	}
}

func imageOr(url string) string {
	if url == "" {
		return PlaceholderImage
	}
	return url
}
