package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the subset of a provider access token the application relies on.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}

// TokenParser reads claims from provider-issued access tokens.
//
// With a secret configured the HS256 signature, expiry and issuer are
// verified. Without one the token is only decoded: it was received directly
// from the provider over TLS and every data request is re-authorized there.
type TokenParser struct {
	secret []byte
	issuer string
}

// NewTokenParser creates a parser. secret may be empty; issuer is checked
// only when non-empty.
func NewTokenParser(secret, issuer string) *TokenParser {
	return &TokenParser{secret: []byte(secret), issuer: issuer}
}

type providerClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifies reports whether signatures are checked.
func (p *TokenParser) Verifies() bool { return len(p.secret) > 0 }

// Parse decodes tokenString and returns its claims.
func (p *TokenParser) Parse(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, fmt.Errorf("token is empty")
	}

	var (
		token *jwt.Token
		err   error
	)
	claims := &providerClaims{}
	if p.Verifies() {
		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()}
		if p.issuer != "" {
			opts = append(opts, jwt.WithIssuer(p.issuer))
		}
		token, err = jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return p.secret, nil
		}, opts...)
		if err == nil && !token.Valid {
			err = fmt.Errorf("invalid token claims")
		}
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
	}
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid subject UUID: %w", err)
	}

	out := Claims{UserID: userID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// ValidateToken checks tokenString and returns the user it was issued to.
// Expired tokens are rejected even when signatures are not verified.
func (p *TokenParser) ValidateToken(tokenString string) (uuid.UUID, error) {
	c, err := p.Parse(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	if !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt) {
		return uuid.Nil, fmt.Errorf("token expired")
	}
	return c.UserID, nil
}
