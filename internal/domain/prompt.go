package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prompt is a persisted diary record. Records are never edited after
// creation; every persisted record has a non-empty Prompt, Tags and Summary.
type Prompt struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Prompt    string
	Response  *string
	Summary   string
	Tags      []string
	CreatedAt time.Time
}

// HasTag reports whether the record carries tag. Comparison is
// case-insensitive.
func (p *Prompt) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ResponseText returns the response or "" when absent.
func (p *Prompt) ResponseText() string {
	if p.Response == nil {
		return ""
	}
	return *p.Response
}

// NewPrompt is the insert payload for a record. ID and CreatedAt are
// assigned by the backend.
type NewPrompt struct {
	Prompt   string
	Response *string
	Summary  string
	Tags     []string
}
