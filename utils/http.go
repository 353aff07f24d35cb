package utils

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"postfetch/internal"
)

// DefaultUserAgent identifies the downloader to content hosts
const DefaultUserAgent = "postfetch/1.0 (content downloader)"

// RetryConfig defines retry behavior configuration
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterPercent float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		JitterPercent: 0.1,
	}
}

// HTTPClientConfig contains configuration for the HTTP client
type HTTPClientConfig struct {
	Timeout     time.Duration
	ProxyURL    string
	UserAgent   string
	RetryConfig *RetryConfig
}

// HTTPClient wraps http.Client with proxy support, a fixed user agent and
// retries for transport-level failures
type HTTPClient struct {
	client      *http.Client
	userAgent   string
	retryConfig *RetryConfig
}

// NewHTTPClient creates a new HTTP client with default configuration
func NewHTTPClient() *HTTPClient {
	client, _ := NewHTTPClientWithConfig(&HTTPClientConfig{
		Timeout:     30 * time.Second,
		RetryConfig: DefaultRetryConfig(),
	})
	return client
}

// NewHTTPClientWithConfig creates a new HTTP client with custom configuration
func NewHTTPClientWithConfig(config *HTTPClientConfig) (*HTTPClient, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig()
	}
	if config.RetryConfig.MaxAttempts < 1 {
		config.RetryConfig.MaxAttempts = 1
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			return nil, err
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:      client,
		userAgent:   config.UserAgent,
		retryConfig: config.RetryConfig,
	}, nil
}

// configureProxy sets up proxy configuration for the transport
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return internal.NewValidationErrorWithValue("proxy_url", fmt.Sprintf("invalid proxy URL: %v", err), proxyURL)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5":
		var auth *proxy.Auth
		if parsedURL.User != nil {
			password, _ := parsedURL.User.Password()
			auth = &proxy.Auth{User: parsedURL.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		transport.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return internal.NewValidationErrorWithValue("proxy_url", "unsupported proxy scheme", proxyURL).
			WithSuggestion("Use http://, https://, or socks5://")
	}

	return nil
}

// Do sends a single request, setting the user agent. Any status is returned to the caller.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logger := internal.GetLogger()
	logger.LogHTTPRequest(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	logger.LogHTTPResponse(resp)
	return resp, nil
}

// GetWithRetry performs a GET, retrying transport failures and 5xx responses with
// exponential backoff. Other statuses are returned as they are.
func (c *HTTPClient) GetWithRetry(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.calculateDelay(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := c.Do(req)
		if err != nil {
			lastErr = err
			if !IsRetryableError(err) {
				return nil, err
			}
			internal.LogDebug("Attempt %d for %s failed: %v", attempt+1, rawURL, err)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = internal.NewHostError(resp.StatusCode, rawURL)
			continue
		}

		return resp, nil
	}

	if fe, ok := internal.AsFetchError(lastErr); ok && fe.Type == internal.ErrHostStatus {
		return nil, fe
	}
	return nil, internal.NewTransientTransportError("GET "+rawURL, c.retryConfig.MaxAttempts, lastErr)
}

// calculateDelay calculates the delay for the next retry attempt
func (c *HTTPClient) calculateDelay(attempt int) time.Duration {
	delay := float64(c.retryConfig.BaseDelay) * math.Pow(c.retryConfig.Multiplier, float64(attempt-1))

	jitter := delay * c.retryConfig.JitterPercent * (rand.Float64()*2 - 1)
	delay += jitter

	if delay > float64(c.retryConfig.MaxDelay) {
		delay = float64(c.retryConfig.MaxDelay)
	}
	if delay < 0 {
		delay = float64(c.retryConfig.BaseDelay)
	}

	return time.Duration(delay)
}

// IsRetryableError reports whether err is a network-level failure worth retrying
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	if fe, ok := internal.AsFetchError(err); ok {
		return fe.IsRetryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryableErrors := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"temporary failure",
		"eof",
	}

	for _, retryableErr := range retryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}

	return false
}
