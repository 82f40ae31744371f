package roster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedRoster = errors.New("malformed roster")
var ErrMalformedParty = errors.New("malformed party")
var ErrInvalidSlot = errors.New("invalid party slot")

// PartySize is fixed; the server authority never sends a shorter party.
const PartySize = 6

type Character struct {
	Name        string `json:"name"`
	ImageURL    string `json:"image_url,omitempty"`
	Role        string `json:"role,omitempty"`
	Recruitment string `json:"recruitment_info,omitempty"`
}

type Roster []Character

// Find looks a character up by exact name. Names are the only key the
// server sends.
func (r Roster) Find(name string) (Character, bool) {
	for _, c := range r {
		if c.Name == name {
			return c, true
		}
	}
	return Character{}, false
}

func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	out := make(Roster, len(r))
	copy(out, r)
	return out
}

// Party holds one character per slot; nil marks an empty slot.
type Party [PartySize]*Character

func EmptyParty() Party { return Party{} }

func ValidSlot(i int) bool { return i >= 0 && i < PartySize }

func (p Party) Occupied(i int) bool {
	return ValidSlot(i) && p[i] != nil
}

// SlotOf returns the first slot holding name.
func (p Party) SlotOf(name string) (int, bool) {
	for i, m := range p {
		if m != nil && m.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (p Party) Has(name string) bool {
	_, ok := p.SlotOf(name)
	return ok
}

func (p Party) Members() []Character {
	out := make([]Character, 0, PartySize)
	for _, m := range p {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// Clone copies every member so the result shares nothing with p.
func (p Party) Clone() Party {
	var out Party
	for i, m := range p {
		if m != nil {
			c := *m
			out[i] = &c
		}
	}
	return out
}

func (p *Party) UnmarshalJSON(data []byte) error {
	parsed, err := ParseParty(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseParty accepts only a JSON array of exactly PartySize entries, each a
// named character object or null.
func ParseParty(data []byte) (Party, error) {
	var party Party
	if !isArray(data) {
		return party, fmt.Errorf("%w: expected an array", ErrMalformedParty)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return party, fmt.Errorf("%w: %v", ErrMalformedParty, err)
	}
	if len(raw) != PartySize {
		return party, fmt.Errorf("%w: got %d slots, want %d", ErrMalformedParty, len(raw), PartySize)
	}

	for i, entry := range raw {
		if bytes.Equal(bytes.TrimSpace(entry), []byte("null")) {
			continue
		}
		var c Character
		if err := json.Unmarshal(entry, &c); err != nil {
			return Party{}, fmt.Errorf("%w: slot %d: %v", ErrMalformedParty, i, err)
		}
		if c.Name == "" {
			return Party{}, fmt.Errorf("%w: slot %d has no name", ErrMalformedParty, i)
		}
		party[i] = &c
	}
	return party, nil
}

// ParseRoster accepts a JSON array of named character objects.
func ParseRoster(data []byte) (Roster, error) {
	if !isArray(data) {
		return nil, fmt.Errorf("%w: expected an array", ErrMalformedRoster)
	}

	var r Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRoster, err)
	}
	for i, c := range r {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrMalformedRoster, i)
		}
	}
	if r == nil {
		r = Roster{}
	}
	return r, nil
}

func isArray(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '['
}
