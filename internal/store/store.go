// Package store holds the client's copy of the roster and party. It is owned
// by a single goroutine (the session loop) and does no locking.
package store

import "github.com/DoyleJ11/stars-party/internal/roster"

// Detail is what the detail panel shows for one character.
type Detail struct {
	Character   roster.Character
	Recruitment string
}

type Store struct {
	roster    roster.Roster
	party     roster.Party
	selection *roster.Character
	filter    string
	detail    *Detail
	loading   bool
}

func New() *Store {
	return &Store{roster: roster.Roster{}}
}

func (s *Store) ReplaceRoster(r roster.Roster) {
	if r == nil {
		r = roster.Roster{}
	}
	s.roster = r.Clone()
}

// ReplaceParty swaps in a full snapshot. There is no per-slot setter; the
// party only changes by server snapshot.
func (s *Store) ReplaceParty(p roster.Party) {
	s.party = p.Clone()
}

func (s *Store) Select(c roster.Character) {
	s.selection = &c
}

func (s *Store) ClearSelection() { s.selection = nil }

func (s *Store) SetFilter(q string) { s.filter = q }

func (s *Store) SetDetail(d Detail) { s.detail = &d }

func (s *Store) SetLoading(v bool) { s.loading = v }

func (s *Store) Roster() roster.Roster { return s.roster.Clone() }

func (s *Store) Party() roster.Party { return s.party.Clone() }

// Selection returns the selected character, if any.
func (s *Store) Selection() (roster.Character, bool) {
	if s.selection == nil {
		return roster.Character{}, false
	}
	return *s.selection, true
}

func (s *Store) Filter() string { return s.filter }

func (s *Store) Detail() (Detail, bool) {
	if s.detail == nil {
		return Detail{}, false
	}
	return *s.detail, true
}

func (s *Store) Loading() bool { return s.loading }
