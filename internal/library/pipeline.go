// Package library turns a user's prompts into the timeline shown by the
// library view: search, tag filter, chronological sort and grouping by day.
// Everything here is pure; nothing performs I/O.
package library

import (
	"slices"
	"strings"
	"time"

	"github.com/heartmarshall/promptly/internal/domain"
)

// Sort is the chronological order of the timeline.
type Sort string

const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// ParseSort maps user input to a Sort. Unknown values fall back to newest.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortOldest:
		return SortOldest
	default:
		return SortNewest
	}
}

// Query selects and orders prompts.
type Query struct {
	// Search is matched case-insensitively as a substring of the prompt,
	// summary or response. Blank matches everything.
	Search string
	// Tags must all be present on a prompt (conjunction).
	Tags []string
	Sort Sort
}

// Group is one calendar day of the timeline.
type Group struct {
	Label   string
	Prompts []domain.Prompt
}

// View is the rendered timeline.
type View struct {
	Groups []Group
	// Total is the number of prompts that passed the filters.
	Total int
	// Tags lists every tag of the unfiltered input, for filter chips.
	Tags []string
}

// Empty reports whether no prompt passed the filters.
func (v View) Empty() bool { return v.Total == 0 }

// Build runs search, tag filter, sort and grouping over prompts. The input
// slice is not modified.
func Build(prompts []domain.Prompt, q Query, loc *time.Location) View {
	filtered := Filter(prompts, q)
	sorted := SortPrompts(filtered, q.Sort)
	return View{
		Groups: GroupByDay(sorted, loc),
		Total:  len(sorted),
		Tags:   AllTags(prompts),
	}
}

// Filter keeps prompts matching both the search text and every selected tag.
func Filter(prompts []domain.Prompt, q Query) []domain.Prompt {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	tags := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	out := make([]domain.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if search != "" && !matchesSearch(&p, search) {
			continue
		}
		if !hasAllTags(&p, tags) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p *domain.Prompt, needle string) bool {
	return strings.Contains(strings.ToLower(p.Prompt), needle) ||
		strings.Contains(strings.ToLower(p.Summary), needle) ||
		strings.Contains(strings.ToLower(p.ResponseText()), needle)
}

func hasAllTags(p *domain.Prompt, tags []string) bool {
	for _, t := range tags {
		if !p.HasTag(t) {
			return false
		}
	}
	return true
}

// SortPrompts returns a copy of prompts ordered by creation time. The sort is
// stable: prompts created at the same instant keep their input order.
func SortPrompts(prompts []domain.Prompt, order Sort) []domain.Prompt {
	out := slices.Clone(prompts)
	if order == SortOldest {
		slices.SortStableFunc(out, func(a, b domain.Prompt) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		return out
	}
	slices.SortStableFunc(out, func(a, b domain.Prompt) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// GroupByDay buckets prompts by calendar day in loc. Groups appear in the
// order their first prompt appears in the input.
func GroupByDay(prompts []domain.Prompt, loc *time.Location) []Group {
	if loc == nil {
		loc = time.Local
	}

	groups := make([]Group, 0)
	index := make(map[string]int)
	for _, p := range prompts {
		label := DateLabel(p.CreatedAt, loc)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Prompts = append(groups[i].Prompts, p)
	}
	return groups
}

// AllTags returns the sorted set of tags used by prompts.
func AllTags(prompts []domain.Prompt) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range prompts {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// DateLabel formats the calendar day of t in loc, e.g. "March 1, 2024".
func DateLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("January 2, 2006")
}

// TimeLabel formats the time of day of t in loc, e.g. "3:04 PM".
func TimeLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("3:04 PM")
}
