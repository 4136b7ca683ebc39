// Package session tracks who is signed in. It mirrors the auth provider's
// state into memory and into a local identity cache.
package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/heartmarshall/promptly/internal/auth"
	"github.com/heartmarshall/promptly/internal/domain"
)

// State is the resolution state of the session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the store.
type Snapshot struct {
	State    State
	Identity *domain.Identity
}

// Loading reports whether the session is not resolved yet. Consumers must
// treat a loading snapshot as "unknown", never as signed out.
func (s Snapshot) Loading() bool {
	return s.State == StateUninitialized || s.State == StateLoading
}

// Authenticated reports whether an identity is present.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

type provider interface {
	GetSession(ctx context.Context) (*auth.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(l auth.Listener) (unsubscribe func())
}

type identityCache interface {
	Load() (*domain.Identity, error)
	Save(ident domain.Identity, at time.Time) error
	Clear() error
}

// Store holds the current identity.
//
// Every provider notification and every SignOut bumps a generation counter.
// A session fetch records the generation when it is issued and commits only
// if nothing newer was applied meanwhile, so the last event always wins.
type Store struct {
	provider provider
	cache    identityCache
	log      *slog.Logger
	now      func() time.Time

	// notifyMu serializes mutations together with listener delivery, so
	// listeners observe snapshots in the order they were produced.
	notifyMu sync.Mutex

	mu          sync.Mutex
	state       State
	identity    *domain.Identity
	cached      *domain.Identity
	gen         uint64
	resolved    chan struct{}
	unsubscribe func()
	closed      bool
	listeners   map[int]func(Snapshot)
	nextID      int
}

// NewStore creates a Store. Call Start to begin tracking.
func NewStore(logger *slog.Logger, p provider, cache identityCache) *Store {
	return &Store{
		provider:  p,
		cache:     cache,
		log:       logger.With("component", "session"),
		now:       time.Now,
		resolved:  make(chan struct{}),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Start loads the cached identity, subscribes to provider notifications and
// resolves the current session in the background. Calling Start more than
// once has no effect.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateUninitialized || s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateLoading
	s.mu.Unlock()

	cached, err := s.cache.Load()
	if err != nil {
		s.log.WarnContext(ctx, "read identity cache", slog.String("error", err.Error()))
	}

	unsubscribe := s.provider.OnAuthStateChange(s.handleEvent)

	s.mu.Lock()
	s.cached = cached
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	go func() {
		_ = s.Initialize(ctx)
	}()
}

// Initialize fetches the current session from the provider. A failed fetch
// is logged and degrades to anonymous; the error is returned for callers
// that run Initialize directly.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	issued := s.gen
	if s.state == StateUninitialized {
		s.state = StateLoading
	}
	s.mu.Unlock()

	sess, err := s.provider.GetSession(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "fetch session failed", slog.String("error", err.Error()))
		s.commit(ctx, issued, nil, false)
		return err
	}

	var ident *domain.Identity
	if sess != nil {
		if id, ok := sess.User.Identity(); ok {
			ident = &id
		} else {
			s.log.WarnContext(ctx, "session without valid user id")
		}
	}
	s.commit(ctx, issued, ident, true)
	return nil
}

// SignOut asks the provider to invalidate the session and clears local
// state regardless of the outcome. Provider failures are logged only.
func (s *Store) SignOut(ctx context.Context) {
	// Invalidate any fetch still in flight before the provider call.
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()

	if err := s.provider.SignOut(ctx); err != nil {
		s.log.WarnContext(ctx, "provider sign out failed", slog.String("error", err.Error()))
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.gen++
	wasAnonymous := s.state == StateAnonymous
	s.apply(ctx, nil, true)
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.log.InfoContext(ctx, "signed out")
	// The provider's SIGNED_OUT event usually got here first.
	if !wasAnonymous {
		deliver(listeners, snap)
	}
}

// Close releases the provider subscription. It is safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Identity returns the signed-in identity or nil.
func (s *Store) Identity() *domain.Identity {
	return s.Snapshot().Identity
}

// Cached returns the identity read from the local cache at Start. It may be
// stale and must only be used as a placeholder while loading.
func (s *Store) Cached() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return nil
	}
	c := *s.cached
	return &c
}

// Wait blocks until the session is resolved or ctx is done.
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.resolved:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Subscribe registers fn to receive a snapshot after every change. fn must
// not call SignOut. The returned function unregisters fn.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) handleEvent(event auth.Event, sess *auth.Session) {
	ctx := context.Background()

	var ident *domain.Identity
	if sess != nil {
		if id, ok := sess.User.Identity(); ok {
			ident = &id
		}
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	wasAnonymous := s.state == StateAnonymous
	s.apply(ctx, ident, true)
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.log.DebugContext(ctx, "auth state changed",
		slog.String("event", string(event)),
		slog.String("state", snap.State.String()),
	)
	if wasAnonymous && snap.State == StateAnonymous {
		return
	}
	deliver(listeners, snap)
}

// commit applies the result of a fetch issued at generation issued, unless a
// newer event has been applied since.
func (s *Store) commit(ctx context.Context, issued uint64, ident *domain.Identity, touchCache bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed || s.gen != issued {
		s.mu.Unlock()
		s.log.DebugContext(ctx, "discarding stale session fetch")
		return
	}
	s.apply(ctx, ident, touchCache)
	snap := s.snapshotLocked()
	listeners := s.listenersLocked()
	s.mu.Unlock()

	deliver(listeners, snap)
}

// apply sets the identity and mirrors it into the cache. Cache writes happen
// under mu so a stale write can never land after a newer clear.
// Caller must hold s.mu.
func (s *Store) apply(ctx context.Context, ident *domain.Identity, touchCache bool) {
	s.identity = ident
	if ident != nil {
		s.state = StateAuthenticated
	} else {
		s.state = StateAnonymous
	}

	select {
	case <-s.resolved:
	default:
		close(s.resolved)
	}

	if !touchCache {
		return
	}
	if ident != nil {
		if err := s.cache.Save(*ident, s.now()); err != nil {
			s.log.WarnContext(ctx, "write identity cache", slog.String("error", err.Error()))
		}
		return
	}
	if err := s.cache.Clear(); err != nil {
		s.log.WarnContext(ctx, "clear identity cache", slog.String("error", err.Error()))
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

func (s *Store) listenersLocked() []func(Snapshot) {
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func deliver(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
