package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the signed-in user as reported by the auth provider.
type Identity struct {
	ID         uuid.UUID
	Email      string
	Name       string
	AvatarURL  string
	LastSignIn time.Time
}

// CachedIdentity is the denormalized copy of Identity kept in local storage
// for fast rehydration. It is never treated as the source of truth.
type CachedIdentity struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar,omitempty"`
	LastSignIn time.Time `json:"lastSignIn"`
}

// ToCached converts an Identity into its cache representation.
func (i Identity) ToCached() CachedIdentity {
	return CachedIdentity{
		ID:         i.ID.String(),
		Email:      i.Email,
		Name:       i.Name,
		Avatar:     i.AvatarURL,
		LastSignIn: i.LastSignIn,
	}
}

// Identity converts the cached copy back. ok is false when the stored id is
// not a valid UUID.
func (c CachedIdentity) Identity() (Identity, bool) {
	id, err := uuid.Parse(c.ID)
	if err != nil || id == uuid.Nil {
		return Identity{}, false
	}
	return Identity{
		ID:         id,
		Email:      c.Email,
		Name:       c.Name,
		AvatarURL:  c.Avatar,
		LastSignIn: c.LastSignIn,
	}, true
}
