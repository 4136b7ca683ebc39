package auth

// Event names an auth state change reported by the provider.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives auth state changes. session is nil when signed out.
type Listener func(event Event, session *Session)
