package imgur

import (
	"context"
	"sync"
	"time"

	"postfetch/internal"
)

const (
	// maxSessionAttempts bounds construction retries on transient failures
	maxSessionAttempts = 3

	invalidClientNotice = "No valid imgur client detected. Downloading from imgur.com requires a valid " +
		"imgur client id and client secret. Set POSTFETCH_IMGUR_CLIENT_ID and POSTFETCH_IMGUR_CLIENT_SECRET " +
		"or the imgur_client_id and imgur_client_secret keys of the config file."
)

// Session is an authenticated imgur session and the credits it saw when it was built
type Session struct {
	ClientID  string
	Fallback  bool
	Credits   Credits
	CreatedAt time.Time
}

// Handle is what callers receive from the SessionManager. A handle that is not Valid means
// no client is available; it is a normal result, not an error.
type Handle struct {
	session *Session
}

// Valid reports whether the handle carries a usable session
func (h Handle) Valid() bool {
	return h.session != nil
}

// Session returns the underlying session, nil for an invalid handle
func (h Handle) Session() *Session {
	return h.session
}

// SessionManager owns the single shared imgur session
type SessionManager struct {
	settings   internal.SettingsProvider
	quota      *QuotaManager
	notifier   internal.Notifier
	retryDelay time.Duration

	mutex    sync.Mutex
	current  *Session
	notified bool
}

// SessionOption configures a SessionManager
type SessionOption func(*SessionManager)

// WithRetryDelay sets the pause between construction attempts
func WithRetryDelay(delay time.Duration) SessionOption {
	return func(m *SessionManager) {
		m.retryDelay = delay
	}
}

// NewSessionManager creates a session manager. notifier may be nil.
func NewSessionManager(settings internal.SettingsProvider, quota *QuotaManager, notifier internal.Notifier, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		settings:   settings,
		quota:      quota,
		notifier:   notifier,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached session, building it on first use
func (m *SessionManager) Get(ctx context.Context) (Handle, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.current != nil {
		return Handle{session: m.current}, nil
	}
	return m.build(ctx)
}

// Renew discards the cached session and builds a new one. The credit counters of a
// session never refresh by themselves, so this is how they are brought up to date.
func (m *SessionManager) Renew(ctx context.Context) (Handle, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.current = nil
	return m.build(ctx)
}

// build must be called with the mutex held
func (m *SessionManager) build(ctx context.Context) (Handle, error) {
	if m.settings.ImgurClientID() == "" {
		m.reportInvalidClient("imgur client id is not configured")
		return Handle{}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxSessionAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(m.retryDelay):
			case <-ctx.Done():
				return Handle{}, ctx.Err()
			}
		}

		credits, err := m.quota.fetchCredits(ctx)
		if err == nil {
			m.current = m.newSession(credits)
			return Handle{session: m.current}, nil
		}
		lastErr = err

		fe, ok := internal.AsFetchError(err)
		switch {
		case ok && fe.Type == internal.ErrInvalidCredential:
			m.reportInvalidClient(fe.Message)
			return Handle{}, nil
		case ok && fe.Type == internal.ErrHostStatus && fe.Code < 500:
			// The host answered and refused; retrying will not change that
			internal.LogWarn("imgur rejected the session request: %v", err)
			return Handle{}, nil
		}

		internal.LogDebug("imgur session attempt %d/%d failed: %v", attempt, maxSessionAttempts, err)
	}

	return Handle{}, internal.NewTransientTransportError("imgur session setup", maxSessionAttempts, lastErr)
}

// newSession records the credits and switches to the fallback key when the user has none left
func (m *SessionManager) newSession(credits *Credits) *Session {
	session := &Session{
		ClientID:  m.settings.ImgurClientID(),
		Credits:   *credits,
		CreatedAt: time.Now(),
	}
	if credits.UserRemaining <= 0 && m.settings.ImgurMashapeKey() != "" {
		session.Fallback = true
		internal.LogInfo("imgur user credits exhausted, using the RapidAPI endpoint")
	}

	m.quota.Observe(credits.State())
	return session
}

// reportInvalidClient warns once per manager through the notification channel
func (m *SessionManager) reportInvalidClient(reason string) {
	internal.GetLogger().WarnFields("Invalid imgur client id or secret", internal.Fields{"reason": reason})

	if m.notified || m.notifier == nil {
		return
	}
	m.notified = true
	m.notifier.Notify(invalidClientNotice)
}
