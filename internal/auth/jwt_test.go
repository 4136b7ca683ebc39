package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return signed
}

func TestTokenParser_Verified_Success(t *testing.T) {
	userID := uuid.New()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "ada@example.com",
		"exp":   exp.Unix(),
		"iss":   "https://proj.supabase.co/auth/v1",
	})

	parser := NewTokenParser(testSecret, "https://proj.supabase.co/auth/v1")
	claims, err := parser.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("expected userID %s, got %s", userID, claims.UserID)
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("expected email, got %q", claims.Email)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("expected exp %v, got %v", exp, claims.ExpiresAt)
	}
}

func TestTokenParser_Verified_InvalidSignature(t *testing.T) {
	token := signToken(t, "different-secret-32-chars-long-for-security!!", jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := NewTokenParser(testSecret, "").Parse(token); err == nil {
		t.Fatal("expected error for invalid signature, got nil")
	}
}

func TestTokenParser_Verified_Expired(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := NewTokenParser(testSecret, "").Parse(token)
	if err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("expected expiry-related error, got: %v", err)
	}
}

func TestTokenParser_Verified_WrongIssuer(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
		"iss": "someone-else",
	})

	if _, err := NewTokenParser(testSecret, "promptly").Parse(token); err == nil {
		t.Fatal("expected error for wrong issuer, got nil")
	}
}

func TestTokenParser_Unverified_DecodesAnySignature(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, "whatever-the-provider-uses-here!", jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	parser := NewTokenParser("", "")
	if parser.Verifies() {
		t.Fatal("expected Verifies() = false without secret")
	}
	got, err := parser.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if got != userID {
		t.Errorf("expected userID %s, got %s", userID, got)
	}
}

func TestTokenParser_Unverified_RejectsExpired(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := NewTokenParser("", "").ValidateToken(token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestTokenParser_Malformed(t *testing.T) {
	parser := NewTokenParser(testSecret, "")

	malformed := []string{
		"",
		"not.a.jwt",
		"invalid-token",
		"header.payload",
	}
	for _, token := range malformed {
		if _, err := parser.Parse(token); err == nil {
			t.Errorf("expected error for malformed token %q, got nil", token)
		}
	}
}

func TestTokenParser_NonUUIDSubject(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "service-role",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := NewTokenParser(testSecret, "").Parse(token)
	if err == nil || !strings.Contains(err.Error(), "subject") {
		t.Fatalf("expected subject error, got %v", err)
	}
}

func TestChallenge_KnownVector(t *testing.T) {
	// RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got := Challenge(verifier); got != want {
		t.Errorf("Challenge() = %q, want %q", got, want)
	}
}

func TestNewPKCE_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		p, err := NewPKCE()
		if err != nil {
			t.Fatalf("NewPKCE failed: %v", err)
		}
		if len(p.Verifier) != 43 {
			t.Errorf("verifier length = %d, want 43", len(p.Verifier))
		}
		if p.Challenge != Challenge(p.Verifier) {
			t.Error("challenge does not match verifier")
		}
		if seen[p.Verifier] {
			t.Errorf("duplicate verifier %s", p.Verifier)
		}
		seen[p.Verifier] = true
	}
}

func TestUser_Identity(t *testing.T) {
	signIn := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	id := uuid.New()

	tests := []struct {
		name     string
		user     User
		wantOK   bool
		wantName string
	}{
		{
			name:     "full name",
			user:     User{ID: id.String(), Email: "a@b.c", UserMetadata: UserMetadata{FullName: "Ada Lovelace"}},
			wantOK:   true,
			wantName: "Ada Lovelace",
		},
		{
			name:     "name fallback",
			user:     User{ID: id.String(), Email: "a@b.c", UserMetadata: UserMetadata{Name: "Ada"}},
			wantOK:   true,
			wantName: "Ada",
		},
		{
			name:     "email fallback",
			user:     User{ID: id.String(), Email: "a@b.c", LastSignInAt: &signIn},
			wantOK:   true,
			wantName: "a@b.c",
		},
		{
			name:   "bad id",
			user:   User{ID: "nope"},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.user.Identity()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.ID != id {
				t.Errorf("ID = %s, want %s", got.ID, id)
			}
			if tt.user.LastSignInAt != nil && !got.LastSignIn.Equal(signIn) {
				t.Errorf("LastSignIn = %v, want %v", got.LastSignIn, signIn)
			}
		})
	}
}

func TestSession_ExpiresWithin(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := Session{ExpiresAt: now.Add(30 * time.Second).Unix()}

	if !s.ExpiresWithin(now, time.Minute) {
		t.Error("expected session to expire within a minute")
	}
	if s.ExpiresWithin(now, 10*time.Second) {
		t.Error("did not expect session to expire within 10s")
	}
	if (&Session{}).ExpiresWithin(now, time.Hour) {
		t.Error("session without expiry should never report expiring")
	}
	if got := (&Session{ExpiresIn: 60}).Expiry(now); !got.Equal(now.Add(time.Minute)) {
		t.Errorf("Expiry() = %v", got)
	}
}
