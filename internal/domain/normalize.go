package domain

import (
	"strings"
	"unicode"
)

// MaxTagLength is the maximum tag length in runes.
const MaxTagLength = 24

// NormalizeTag turns free text into a tag token:
//   - lowercases and trims
//   - drops everything except letters, digits, whitespace and hyphens
//   - collapses runs of whitespace and hyphens into a single hyphen
//   - strips leading/trailing hyphens
//   - caps the result at MaxTagLength runes
//
// An empty result means the input carried no usable characters.
// NormalizeTag(NormalizeTag(s)) == NormalizeTag(s) for every s.
func NormalizeTag(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	n := 0
	sep := false
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			if sep && n > 0 {
				b.WriteByte('-')
				n++
			}
			sep = false
			b.WriteRune(r)
			n++
		case r == '-' || unicode.IsSpace(r):
			sep = true
		}
		if n >= MaxTagLength {
			break
		}
	}

	return strings.TrimRight(truncateRunes(b.String(), MaxTagLength), "-")
}

// NormalizeTags normalizes every tag, drops empty results and suppresses
// duplicates while keeping first-seen order.
func NormalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		tag := NormalizeTag(t)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}
