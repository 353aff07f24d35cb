package imgur

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"postfetch/internal"
	"postfetch/utils"
)

// DefaultMaxRetries is the rate-limit retry budget used by the convenience calls
const DefaultMaxRetries = 1

// Result is the outcome of Fetch. Exhausted means the host kept rate limiting until the
// retry budget ran out; the caller should try again later. Body is empty in that case.
type Result struct {
	Body      json.RawMessage
	Exhausted bool
	Quota     QuotaState
}

// Decode unmarshals the data field of the imgur envelope into v
func (r *Result) Decode(v interface{}) error {
	var envelope apiResponse
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return err
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("response has no data field")
	}
	return json.Unmarshal(envelope.Data, v)
}

// Client issues quota-aware requests against imgur
type Client struct {
	quota      *QuotaManager
	sessions   *SessionManager
	httpClient *utils.HTTPClient
	limiter    *rate.Limiter
	maxRetries int
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithRequestRate paces requests to imgur
func WithRequestRate(every time.Duration, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithMaxRetries sets the rate-limit retry budget of GetAlbumImages and GetImage
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// NewClient creates an imgur client sharing the given quota and session managers
func NewClient(quota *QuotaManager, sessions *SessionManager, httpClient *utils.HTTPClient, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = utils.NewHTTPClient()
	}
	c := &Client{
		quota:      quota,
		sessions:   sessions,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quota returns the shared quota manager
func (c *Client) Quota() *QuotaManager {
	return c.quota
}

// session returns a valid session or an ErrInvalidCredential error. A session whose
// credits ran out is renewed once the credit time limit has passed.
func (c *Client) session(ctx context.Context) (Handle, error) {
	handle, err := c.sessions.Get(ctx)
	if err != nil {
		return Handle{}, err
	}

	if handle.Valid() && c.quota.Snapshot().RemainingCredits <= 0 {
		if !c.quota.HasCreditWindow() {
			internal.LogDebug("imgur credits used up, not renewing the session before %s",
				c.quota.CreditTimeLimit().Format(time.RFC3339))
		} else {
			if handle, err = c.sessions.Renew(ctx); err != nil {
				return Handle{}, err
			}
			// Either the user or the client count may be the one that ran out
			if state := c.quota.Snapshot(); handle.Valid() && state.RemainingCredits <= 0 {
				limit := state.ResetAt
				if !limit.After(c.quota.now()) {
					limit = time.Time{}
				}
				c.quota.SetCreditTimeLimit(limit)
			}
		}
	}

	if !handle.Valid() {
		return Handle{}, internal.NewInvalidCredentialError("no valid imgur client available").
			WithSuggestion("Check the imgur client id and secret")
	}
	return handle, nil
}

// Fetch requests resourcePath (e.g. "album/abc/images"). A 429 refreshes the credits and
// retries while the budget lasts; maxRetries=1 means at most two requests. Running out of
// budget is not an error: the result comes back with Exhausted set. Any other non-200
// status is an ErrHostStatus error.
func (c *Client) Fetch(ctx context.Context, resourcePath string, maxRetries int) (*Result, error) {
	if _, err := c.session(ctx); err != nil {
		return nil, err
	}

	for budget := maxRetries; budget >= 0; budget-- {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		endpoint, err := c.quota.SelectEndpoint(ctx)
		if err != nil {
			return nil, err
		}

		internal.GetLogger().DebugFields("imgur request", internal.Fields{
			"endpoint": endpoint.Name,
			"resource": resourcePath,
			"retries":  budget,
		})
		status, body, header, err := c.get(ctx, endpoint, resourcePath)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			c.quota.ObserveHeaders(header)
			return &Result{Body: body, Quota: c.quota.Snapshot()}, nil

		case http.StatusTooManyRequests:
			internal.LogDebug("imgur rate limited %s, %d retries left", resourcePath, budget)
			// Refreshed on every 429 even if the credits were just checked
			if _, err := c.quota.CheckCredits(ctx); err != nil {
				return nil, err
			}

		default:
			var envelope apiResponse
			_ = json.Unmarshal(body, &envelope)
			return nil, statusError(status, endpoint.URL(resourcePath), envelope.Data)
		}
	}

	internal.LogWarn("imgur kept rate limiting %s, giving up for now", resourcePath)
	return &Result{Exhausted: true, Quota: c.quota.Snapshot()}, nil
}

// get performs one request without interpreting the status
func (c *Client) get(ctx context.Context, endpoint Endpoint, resourcePath string) (int, []byte, http.Header, error) {
	requestURL := endpoint.URL(resourcePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range endpoint.Headers() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, internal.NewTransientTransportError("GET "+requestURL, 1, err).WithURL(requestURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, internal.NewTransientTransportError("reading "+requestURL, 1, err).WithURL(requestURL)
	}
	return resp.StatusCode, body, resp.Header, nil
}

// fetchData runs Fetch with the client's retry budget and decodes the data field
func (c *Client) fetchData(ctx context.Context, resourcePath string, v interface{}) error {
	result, err := c.Fetch(ctx, resourcePath, c.maxRetries)
	if err != nil {
		return err
	}
	if result.Exhausted {
		resetIn := int(time.Until(result.Quota.ResetAt).Seconds())
		if resetIn < 0 {
			resetIn = 0
		}
		return internal.NewRateLimitError(resetIn).WithURL(resourcePath)
	}
	if err := result.Decode(v); err != nil {
		return internal.NewInvalidResponseError(resourcePath, err.Error())
	}
	return nil
}

type imageData struct {
	ID   string `json:"id"`
	Link string `json:"link"`
	Type string `json:"type"`
}

// GetAlbumImages returns the direct links of an album's images in album order
func (c *Client) GetAlbumImages(ctx context.Context, albumID string) ([]string, error) {
	resourcePath := fmt.Sprintf("album/%s/images", albumID)

	var images []imageData
	if err := c.fetchData(ctx, resourcePath, &images); err != nil {
		return nil, err
	}

	links := make([]string, 0, len(images))
	for i, image := range images {
		if image.Link == "" {
			return nil, internal.NewInvalidResponseError(resourcePath, fmt.Sprintf("image %d has no link", i))
		}
		links = append(links, image.Link)
	}
	return links, nil
}

// GetImage returns the direct link of a single image
func (c *Client) GetImage(ctx context.Context, imageID string) (string, error) {
	resourcePath := "image/" + imageID

	var image imageData
	if err := c.fetchData(ctx, resourcePath, &image); err != nil {
		return "", err
	}
	if image.Link == "" {
		return "", internal.NewInvalidResponseError(resourcePath, "image has no link")
	}
	return image.Link, nil
}
