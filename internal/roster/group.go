package roster

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Group struct {
	Letter  string
	Members []Character
}

// Letter is the uppercased first rune of a name.
func Letter(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 {
		return ""
	}
	return cases.Upper(language.Und).String(string(r))
}

// GroupByLetter buckets the roster by Letter. Groups come back sorted by
// letter and members by name, so the result does not depend on input order.
func GroupByLetter(r Roster) []Group {
	buckets := map[string][]Character{}
	for _, c := range r {
		l := Letter(c.Name)
		buckets[l] = append(buckets[l], c)
	}

	letters := make([]string, 0, len(buckets))
	for l := range buckets {
		letters = append(letters, l)
	}
	slices.Sort(letters)

	// Collators keep internal buffers, so one per call.
	col := collate.New(language.Und)
	groups := make([]Group, 0, len(letters))
	for _, l := range letters {
		members := buckets[l]
		slices.SortStableFunc(members, func(a, b Character) int {
			if c := col.CompareString(a.Name, b.Name); c != 0 {
				return c
			}
			return strings.Compare(a.Name, b.Name)
		})
		groups = append(groups, Group{Letter: l, Members: members})
	}
	return groups
}

// Filter keeps characters whose name or role contains query, ignoring case.
// Relative order is preserved. An empty query keeps everything.
func Filter(r Roster, query string) Roster {
	if strings.TrimSpace(query) == "" {
		return r.Clone()
	}

	fold := cases.Fold()
	q := fold.String(query)
	out := Roster{}
	for _, c := range r {
		if strings.Contains(fold.String(c.Name), q) ||
			(c.Role != "" && strings.Contains(fold.String(c.Role), q)) {
			out = append(out, c)
		}
	}
	return out
}
