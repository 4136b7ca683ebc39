package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
)

// Session is the provider session as returned by the token endpoint and
// persisted locally between runs.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// User is the provider's user object.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	LastSignInAt *time.Time   `json:"last_sign_in_at,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// UserMetadata carries profile fields filled in by the OAuth provider.
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Expiry returns the absolute expiry time. ExpiresAt wins over ExpiresIn.
func (s *Session) Expiry(issuedAt time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return issuedAt.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// ExpiresWithin reports whether the access token expires before now+d.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Add(d).After(time.Unix(s.ExpiresAt, 0))
}

// Identity converts the provider user into the domain identity.
// The display name falls back to the e-mail address.
func (u User) Identity() (domain.Identity, bool) {
	id, err := uuid.Parse(u.ID)
	if err != nil || id == uuid.Nil {
		return domain.Identity{}, false
	}

	name := strings.TrimSpace(u.UserMetadata.FullName)
	if name == "" {
		name = strings.TrimSpace(u.UserMetadata.Name)
	}
	if name == "" {
		name = u.Email
	}

	ident := domain.Identity{
		ID:        id,
		Email:     u.Email,
		Name:      name,
		AvatarURL: u.UserMetadata.AvatarURL,
	}
	if u.LastSignInAt != nil {
		ident.LastSignIn = *u.LastSignInAt
	}
	return ident, true
}
