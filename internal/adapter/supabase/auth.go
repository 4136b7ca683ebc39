package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/heartmarshall/promptly/internal/auth"
	"github.com/heartmarshall/promptly/internal/config"
	"github.com/heartmarshall/promptly/internal/domain"
)

// Local storage keys.
const (
	SessionKey  = "promptly-auth-token"
	verifierKey = "promptly-auth-token-code-verifier"
)

type keyValueStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// AuthClient implements the PKCE OAuth flow against GoTrue and keeps the
// resulting session in local storage, refreshing it before it expires.
type AuthClient struct {
	client      *Client
	store       keyValueStore
	tokens      *auth.TokenParser
	provider    string
	redirectURL string
	leeway      time.Duration
	log         *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	session *auth.Session
	loaded  bool
	// gen changes on every save and clear. A refresh only commits its
	// result if gen is unchanged since it read the session.
	gen uint64

	// refreshMu serializes refreshes so a token is exchanged once.
	refreshMu sync.Mutex

	subsMu sync.Mutex
	subs   map[int]auth.Listener
	nextID int

	// notifyMu delivers events one at a time in emission order.
	notifyMu sync.Mutex
}

// NewAuthClient creates an AuthClient.
func NewAuthClient(
	client *Client,
	store keyValueStore,
	tokens *auth.TokenParser,
	cfg config.SupabaseConfig,
	logger *slog.Logger,
) *AuthClient {
	return &AuthClient{
		client:      client,
		store:       store,
		tokens:      tokens,
		provider:    cfg.OAuthProvider,
		redirectURL: cfg.RedirectURL,
		leeway:      cfg.RefreshLeeway,
		log:         logger.With("adapter", "supabase_auth"),
		now:         time.Now,
		subs:        make(map[int]auth.Listener),
	}
}

// SignInURL starts a PKCE sign-in and returns the provider authorize URL the
// user must visit. The verifier is kept until ExchangeCode.
func (a *AuthClient) SignInURL() (string, error) {
	pkce, err := auth.NewPKCE()
	if err != nil {
		return "", &domain.AuthError{Op: "sign in", Err: err}
	}
	if err := a.store.Set(verifierKey, pkce.Verifier); err != nil {
		return "", &domain.AuthError{Op: "sign in", Err: fmt.Errorf("store verifier: %w", err)}
	}

	q := url.Values{}
	q.Set("provider", a.provider)
	q.Set("redirect_to", a.redirectURL)
	q.Set("code_challenge", pkce.Challenge)
	q.Set("code_challenge_method", "s256")
	return a.client.endpoint(authPath+"/authorize", q), nil
}

// ExchangeCode completes a sign-in started by SignInURL.
func (a *AuthClient) ExchangeCode(ctx context.Context, code string) (*auth.Session, error) {
	if code == "" {
		return nil, &domain.AuthError{Op: "exchange code", Err: domain.NewValidationError("code", "required")}
	}
	verifier, err := a.store.Get(verifierKey)
	if err != nil {
		return nil, &domain.AuthError{Op: "exchange code", Err: fmt.Errorf("no pending sign-in: %w", err)}
	}

	sess, err := a.token(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, &domain.AuthError{Op: "exchange code", Status: statusOf(err), Err: err}
	}
	if err := a.store.Delete(verifierKey); err != nil {
		a.log.WarnContext(ctx, "delete code verifier", slog.String("error", err.Error()))
	}

	if err := a.save(sess); err != nil {
		return nil, &domain.AuthError{Op: "exchange code", Err: err}
	}
	a.log.InfoContext(ctx, "signed in", slog.String("user_id", sess.User.ID))
	a.emit(auth.EventSignedIn, sess)
	return sess, nil
}

// GetSession returns the current session, refreshing it when the access
// token expires within the configured leeway. It returns nil, nil when no
// one is signed in.
func (a *AuthClient) GetSession(ctx context.Context) (*auth.Session, error) {
	sess, _, err := a.current()
	if err != nil {
		return nil, &domain.AuthError{Op: "get session", Err: err}
	}
	if sess == nil || !sess.ExpiresWithin(a.now(), a.leeway) {
		return sess, nil
	}
	return a.refresh(ctx, sess)
}

// AccessToken returns a valid access token or domain.ErrUnauthorized.
func (a *AuthClient) AccessToken(ctx context.Context) (string, error) {
	sess, err := a.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", domain.ErrUnauthorized
	}
	return sess.AccessToken, nil
}

// GetUser asks the provider for the user behind the current access token.
func (a *AuthClient) GetUser(ctx context.Context) (*auth.User, error) {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	_, body, err := a.client.do(ctx, request{
		method: http.MethodGet,
		path:   authPath + "/user",
		token:  token,
		retry:  true,
	})
	if err != nil {
		return nil, &domain.AuthError{Op: "get user", Status: statusOf(err), Err: err}
	}
	var u auth.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, &domain.AuthError{Op: "get user", Err: fmt.Errorf("decode user: %w", err)}
	}
	return &u, nil
}

// SignOut invalidates the session at the provider and always clears it
// locally. The provider error, if any, is returned after local cleanup.
func (a *AuthClient) SignOut(ctx context.Context) error {
	sess, _, loadErr := a.current()

	var remoteErr error
	if sess != nil {
		_, _, err := a.client.do(ctx, request{
			method: http.MethodPost,
			path:   authPath + "/logout",
			query:  url.Values{"scope": {"local"}},
			token:  sess.AccessToken,
		})
		// An already invalid token means the session is gone remotely too.
		if err != nil && statusOf(err) != http.StatusUnauthorized && statusOf(err) != http.StatusNotFound {
			remoteErr = &domain.AuthError{Op: "sign out", Status: statusOf(err), Err: err}
		}
	}

	clearErr := a.clear()
	a.emit(auth.EventSignedOut, nil)

	if err := errors.Join(remoteErr, loadErr, clearErr); err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			return err
		}
		return &domain.AuthError{Op: "sign out", Err: err}
	}
	return nil
}

// OnAuthStateChange registers l for auth events and returns a function that
// unregisters it. If a session was already loaded, l receives
// EventInitialSession asynchronously.
func (a *AuthClient) OnAuthStateChange(l auth.Listener) (unsubscribe func()) {
	a.subsMu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = l
	a.subsMu.Unlock()

	a.mu.Lock()
	loaded, sess := a.loaded, a.session
	a.mu.Unlock()
	if loaded {
		go a.deliver(id, auth.EventInitialSession, sess)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			a.subsMu.Lock()
			delete(a.subs, id)
			a.subsMu.Unlock()
		})
	}
}

func (a *AuthClient) deliver(id int, event auth.Event, sess *auth.Session) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.subsMu.Lock()
	l, ok := a.subs[id]
	a.subsMu.Unlock()
	if ok {
		l(event, sess)
	}
}

func (a *AuthClient) emit(event auth.Event, sess *auth.Session) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()
	a.emitLocked(event, sess)
}

// emitIf delivers event only while the session is still at generation gen,
// so a stale refresh can never follow a sign-out.
func (a *AuthClient) emitIf(gen uint64, event auth.Event, sess *auth.Session) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	current := a.gen == gen
	a.mu.Unlock()
	if current {
		a.emitLocked(event, sess)
	}
}

func (a *AuthClient) emitLocked(event auth.Event, sess *auth.Session) {
	a.subsMu.Lock()
	ids := make([]int, 0, len(a.subs))
	for id := range a.subs {
		ids = append(ids, id)
	}
	a.subsMu.Unlock()

	// Map iteration order is random; deliver in registration order.
	slices.Sort(ids)
	for _, id := range ids {
		a.subsMu.Lock()
		l, ok := a.subs[id]
		a.subsMu.Unlock()
		if ok {
			l(event, sess)
		}
	}
}

func (a *AuthClient) refresh(ctx context.Context, stale *auth.Session) (*auth.Session, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	cur, gen, err := a.current()
	if err != nil {
		return nil, &domain.AuthError{Op: "refresh", Err: err}
	}
	if cur == nil {
		return nil, nil
	}
	if cur.AccessToken != stale.AccessToken && !cur.ExpiresWithin(a.now(), a.leeway) {
		return cur, nil
	}

	sess, err := a.token(ctx, "refresh_token", map[string]string{"refresh_token": cur.RefreshToken})
	if err != nil {
		status := statusOf(err)
		// 4xx means the refresh token was revoked or already used.
		if status >= 400 && status < 500 {
			a.log.WarnContext(ctx, "refresh token rejected, signing out", slog.Int("status", status))
			cleared, clearErr := a.clearIf(gen)
			if clearErr != nil {
				a.log.ErrorContext(ctx, "clear session", slog.String("error", clearErr.Error()))
			}
			if cleared {
				a.emitIf(gen+1, auth.EventSignedOut, nil)
			}
		}
		return nil, &domain.AuthError{Op: "refresh", Status: status, Err: err}
	}

	next, ok, err := a.saveIf(gen, sess)
	if err != nil {
		return nil, &domain.AuthError{Op: "refresh", Err: err}
	}
	if !ok {
		// Signed out or signed in again while the token was exchanged.
		a.log.DebugContext(ctx, "discarding superseded refresh")
		latest, _, err := a.current()
		if err != nil {
			return nil, &domain.AuthError{Op: "refresh", Err: err}
		}
		return latest, nil
	}
	a.log.DebugContext(ctx, "session refreshed", slog.String("user_id", sess.User.ID))
	a.emitIf(next, auth.EventTokenRefreshed, sess)
	return sess, nil
}

func (a *AuthClient) token(ctx context.Context, grant string, payload map[string]string) (*auth.Session, error) {
	_, body, err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {grant}},
		body:   payload,
	})
	if err != nil {
		return nil, err
	}

	var sess auth.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("token response without access_token")
	}
	if sess.ExpiresAt == 0 {
		sess.ExpiresAt = a.expiryFromToken(sess.AccessToken, sess.Expiry(a.now()))
	}
	return &sess, nil
}

func (a *AuthClient) expiryFromToken(token string, fallback time.Time) int64 {
	if a.tokens != nil {
		if c, err := a.tokens.Parse(token); err == nil && !c.ExpiresAt.IsZero() {
			return c.ExpiresAt.Unix()
		}
	}
	return fallback.Unix()
}

// current returns the in-memory session and its generation, loading the
// session from storage once.
func (a *AuthClient) current() (*auth.Session, uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loaded {
		return a.session, a.gen, nil
	}

	raw, err := a.store.Get(SessionKey)
	if errors.Is(err, domain.ErrNotFound) {
		a.loaded = true
		return nil, a.gen, nil
	}
	if err != nil {
		return nil, a.gen, fmt.Errorf("load session: %w", err)
	}

	var sess auth.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.AccessToken == "" {
		// A corrupt entry is treated as signed out.
		a.log.Warn("discarding unreadable stored session")
		_ = a.store.Delete(SessionKey)
		a.loaded = true
		return nil, a.gen, nil
	}
	a.session = &sess
	a.loaded = true
	return a.session, a.gen, nil
}

func (a *AuthClient) save(sess *auth.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveLocked(sess)
}

// saveIf stores sess only if the session is still at generation gen. It
// returns the new generation and whether sess was stored.
func (a *AuthClient) saveIf(gen uint64, sess *auth.Session) (uint64, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen {
		return a.gen, false, nil
	}
	if err := a.saveLocked(sess); err != nil {
		return a.gen, false, err
	}
	return a.gen, true, nil
}

func (a *AuthClient) saveLocked(sess *auth.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := a.store.Set(SessionKey, string(raw)); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	a.session = sess
	a.loaded = true
	a.gen++
	return nil
}

func (a *AuthClient) clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clearLocked()
}

// clearIf clears the session only if it is still at generation gen.
func (a *AuthClient) clearIf(gen uint64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen {
		return false, nil
	}
	return true, a.clearLocked()
}

func (a *AuthClient) clearLocked() error {
	a.session = nil
	a.loaded = true
	a.gen++
	if err := a.store.Delete(SessionKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
