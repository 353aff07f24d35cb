package imgur

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"postfetch/internal"
	"postfetch/utils"
)

const (
	// FreeBaseURL is the directly authenticated imgur API
	FreeBaseURL = "https://api.imgur.com/3/"
	// RapidAPIBaseURL is the metered imgur proxy used once free credits run out
	RapidAPIBaseURL = "https://imgur-apiv3.p.rapidapi.com/3/"

	// defaultCreditWindow is how far ahead SetCreditTimeLimit looks when no time is given
	defaultCreditWindow = 3605 * time.Second
)

// Endpoint is one of the two imgur API entry points
type Endpoint struct {
	Name    string
	BaseURL string
	Metered bool
	headers map[string]string
}

// URL joins the endpoint base with a resource path such as "album/abc/images"
func (e Endpoint) URL(resourcePath string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(resourcePath, "/")
}

// Headers returns the authentication headers for requests sent to this endpoint
func (e Endpoint) Headers() map[string]string {
	headers := make(map[string]string, len(e.headers))
	for key, value := range e.headers {
		headers[key] = value
	}
	return headers
}

// QuotaState is the last known credit count. RemainingCredits is only trusted until ResetAt.
type QuotaState struct {
	RemainingCredits int       `json:"remaining_credits"`
	ResetAt          time.Time `json:"reset_at"`
}

// Stale reports whether the state must be refreshed before it is trusted again
func (s QuotaState) Stale(now time.Time) bool {
	return now.After(s.ResetAt)
}

// Credits is the payload of the imgur credits endpoint
type Credits struct {
	UserLimit       int   `json:"UserLimit"`
	UserRemaining   int   `json:"UserRemaining"`
	UserReset       int64 `json:"UserReset"`
	ClientLimit     int   `json:"ClientLimit"`
	ClientRemaining int   `json:"ClientRemaining"`
}

// State reduces the payload to the binding constraint: whichever of user and client
// credits is scarcer
func (c Credits) State() QuotaState {
	remaining := c.UserRemaining
	if c.ClientRemaining < remaining {
		remaining = c.ClientRemaining
	}
	if remaining < 0 {
		remaining = 0
	}
	return QuotaState{
		RemainingCredits: remaining,
		ResetAt:          time.Unix(c.UserReset, 0),
	}
}

// apiResponse is the envelope imgur wraps every payload in
type apiResponse struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Status  int             `json:"status"`
}

// apiError is the data payload of a failed imgur call
type apiError struct {
	Error string `json:"error"`
}

// QuotaManager tracks imgur credits and decides which endpoint serves the next request.
// It is shared by every worker; the state is always replaced as a whole.
type QuotaManager struct {
	settings   internal.SettingsProvider
	httpClient *utils.HTTPClient
	freeURL    string
	rapidURL   string
	now        func() time.Time

	mutex           sync.RWMutex
	state           QuotaState
	creditTimeLimit time.Time
}

// QuotaOption configures a QuotaManager
type QuotaOption func(*QuotaManager)

// WithBaseURLs overrides the free and metered base URLs
func WithBaseURLs(freeURL, rapidURL string) QuotaOption {
	return func(q *QuotaManager) {
		q.freeURL = freeURL
		q.rapidURL = rapidURL
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) QuotaOption {
	return func(q *QuotaManager) {
		q.now = now
	}
}

// NewQuotaManager creates a quota manager. The state is fetched lazily on first use.
func NewQuotaManager(settings internal.SettingsProvider, httpClient *utils.HTTPClient, opts ...QuotaOption) *QuotaManager {
	if httpClient == nil {
		httpClient = utils.NewHTTPClient()
	}
	q := &QuotaManager{
		settings:   settings,
		httpClient: httpClient,
		freeURL:    FreeBaseURL,
		rapidURL:   RapidAPIBaseURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// FreeEndpoint returns the directly authenticated endpoint
func (q *QuotaManager) FreeEndpoint() Endpoint {
	return Endpoint{
		Name:    "imgur",
		BaseURL: q.freeURL,
		headers: map[string]string{
			"Authorization": "Client-ID " + q.settings.ImgurClientID(),
		},
	}
}

// FallbackEndpoint returns the metered endpoint, or false when no key is configured
func (q *QuotaManager) FallbackEndpoint() (Endpoint, bool) {
	key := q.settings.ImgurMashapeKey()
	if key == "" {
		return Endpoint{}, false
	}
	return Endpoint{
		Name:    "rapidapi",
		BaseURL: q.rapidURL,
		Metered: true,
		headers: map[string]string{
			"Authorization": "Client-ID " + q.settings.ImgurClientID(),
			"X-Mashape-Key": key,
		},
	}, true
}

// CheckCredits queries the credits endpoint and replaces the quota state.
// Transport and decoding failures are returned as they are.
func (q *QuotaManager) CheckCredits(ctx context.Context) (QuotaState, error) {
	credits, err := q.fetchCredits(ctx)
	if err != nil {
		return QuotaState{}, err
	}

	state := credits.State()
	q.Observe(state)

	internal.LogDebug("imgur credits: %d remaining until %s", state.RemainingCredits, state.ResetAt.Format(time.RFC3339))
	return state, nil
}

// fetchCredits calls the credits endpoint on the free API
func (q *QuotaManager) fetchCredits(ctx context.Context) (*Credits, error) {
	endpoint := q.FreeEndpoint()
	creditsURL := endpoint.URL("credits")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, creditsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create credits request: %w", err)
	}
	for key, value := range endpoint.Headers() {
		req.Header.Set(key, value)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check imgur credits: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read credits response: %w", err)
	}

	var envelope apiResponse
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, creditsURL, envelope.Data)
	}
	if decodeErr != nil {
		return nil, internal.NewInvalidResponseError(creditsURL, decodeErr.Error())
	}

	var credits Credits
	if err := json.Unmarshal(envelope.Data, &credits); err != nil {
		return nil, internal.NewInvalidResponseError(creditsURL, "credits payload: "+err.Error())
	}
	return &credits, nil
}

// statusError maps a failed imgur status to the error taxonomy
func statusError(status int, url string, data json.RawMessage) error {
	var payload apiError
	if len(data) > 0 {
		_ = json.Unmarshal(data, &payload)
	}

	if (status == http.StatusForbidden || status == http.StatusUnauthorized) &&
		strings.HasPrefix(payload.Error, "Invalid client") {
		return internal.NewInvalidCredentialError(payload.Error).WithURL(url)
	}

	hostErr := internal.NewHostError(status, url)
	if payload.Error != "" {
		hostErr.WithContext("imgur_error", payload.Error)
	}
	return hostErr
}

// SelectEndpoint returns the endpoint for the next request. A stale state is refreshed
// first. Free credits win; without them the metered endpoint is used when a key is
// configured, otherwise the result is ErrNoQuota.
func (q *QuotaManager) SelectEndpoint(ctx context.Context) (Endpoint, error) {
	state := q.Snapshot()
	if state.Stale(q.now()) {
		refreshed, err := q.CheckCredits(ctx)
		if err != nil {
			return Endpoint{}, err
		}
		state = refreshed
	}

	if state.RemainingCredits > 0 {
		return q.FreeEndpoint(), nil
	}
	if fallback, ok := q.FallbackEndpoint(); ok {
		return fallback, nil
	}

	resetIn := int(state.ResetAt.Sub(q.now()).Seconds())
	if resetIn < 0 {
		resetIn = 0
	}
	return Endpoint{}, internal.NewNoQuotaError(resetIn)
}

// Snapshot returns a copy of the current state
func (q *QuotaManager) Snapshot() QuotaState {
	q.mutex.RLock()
	defer q.mutex.RUnlock()
	return q.state
}

// Observe replaces the state with one learned elsewhere, e.g. from a new session
func (q *QuotaManager) Observe(state QuotaState) {
	q.mutex.Lock()
	q.state = state
	q.mutex.Unlock()
}

// ObserveHeaders updates the state from imgur's rate limit response headers.
// Responses without the full set of headers are ignored.
func (q *QuotaManager) ObserveHeaders(header http.Header) {
	user, userErr := strconv.Atoi(header.Get("X-RateLimit-UserRemaining"))
	client, clientErr := strconv.Atoi(header.Get("X-RateLimit-ClientRemaining"))
	reset, resetErr := strconv.ParseInt(header.Get("X-RateLimit-UserReset"), 10, 64)
	if userErr != nil || clientErr != nil || resetErr != nil {
		return
	}

	q.Observe(Credits{UserRemaining: user, ClientRemaining: client, UserReset: reset}.State())
}

// HasCreditWindow is a cheap hint that credits have probably refreshed: it reports whether
// the stored credit time limit has passed. It may be stale and never replaces SelectEndpoint.
func (q *QuotaManager) HasCreditWindow() bool {
	q.mutex.RLock()
	defer q.mutex.RUnlock()
	return q.now().After(q.creditTimeLimit)
}

// SetCreditTimeLimit stores the time credits are expected back. A zero time means one hour from now.
func (q *QuotaManager) SetCreditTimeLimit(limit time.Time) {
	if limit.IsZero() {
		limit = q.now().Add(defaultCreditWindow)
	}
	q.mutex.Lock()
	q.creditTimeLimit = limit
	q.mutex.Unlock()
}

// CreditTimeLimit returns the stored credit time limit
func (q *QuotaManager) CreditTimeLimit() time.Time {
	q.mutex.RLock()
	defer q.mutex.RUnlock()
	return q.creditTimeLimit
}
