package internal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different types of errors
type ErrorType int

const (
	ErrNone ErrorType = iota
	ErrHostStatus
	ErrNoQuota
	ErrInvalidCredential
	ErrTextSave
	ErrTransientTransport
	ErrRateLimit
	ErrInvalidURL
	ErrInvalidResponse
	ErrDownloadFailed
	ErrUnsupportedSource
	ErrPermissionDenied
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// FetchError is the error raised by the content hosts and extractors
type FetchError struct {
	Code       int                    `json:"code"`
	Message    string                 `json:"message"`
	Type       ErrorType              `json:"type"`
	Severity   ErrorSeverity          `json:"severity"`
	URL        string                 `json:"url,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	RetryAfter int                    `json:"retry_after,omitempty"` // seconds
	Context    map[string]interface{} `json:"context,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *FetchError) Error() string {
	var parts []string

	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("%s error (code: %d)", e.Type.String(), e.Code))
	} else {
		parts = append(parts, fmt.Sprintf("%s error", e.Type.String()))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, " - ")
}

// Unwrap exposes the underlying cause
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches another FetchError by type, so sentinel values work with errors.Is
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Code == 0 || t.Code == e.Code)
}

// DetailedError returns a detailed error message with all available information
func (e *FetchError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s Error", e.Severity.String(), e.Type.String()))

	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("Code: %d", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, fmt.Sprintf("Message: %s", e.Message))
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Err))
	}

	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", redactSensitiveURL(e.URL)))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	if e.RetryAfter > 0 {
		parts = append(parts, fmt.Sprintf("Retry after: %d seconds", e.RetryAfter))
	}

	return strings.Join(parts, "\n")
}

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrNone:
		return "None"
	case ErrHostStatus:
		return "HostStatus"
	case ErrNoQuota:
		return "NoQuotaAvailable"
	case ErrInvalidCredential:
		return "InvalidCredential"
	case ErrTextSave:
		return "TextSaveFailure"
	case ErrTransientTransport:
		return "TransientTransport"
	case ErrRateLimit:
		return "RateLimit"
	case ErrInvalidURL:
		return "InvalidURL"
	case ErrInvalidResponse:
		return "InvalidResponse"
	case ErrDownloadFailed:
		return "DownloadFailed"
	case ErrUnsupportedSource:
		return "UnsupportedSource"
	case ErrPermissionDenied:
		return "PermissionDenied"
	default:
		return "Unknown"
	}
}

// MarshalText renders the type by name in reports
func (et ErrorType) MarshalText() ([]byte, error) {
	return []byte(et.String()), nil
}

// String returns the string representation of ErrorSeverity
func (es ErrorSeverity) String() string {
	switch es {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NewFetchError creates a new FetchError with default severity and suggestion
func NewFetchError(code int, message string, errorType ErrorType) *FetchError {
	return &FetchError{
		Code:       code,
		Message:    message,
		Type:       errorType,
		Severity:   getDefaultSeverity(errorType),
		Suggestion: getDefaultSuggestion(errorType, code),
		Context:    make(map[string]interface{}),
	}
}

// WithSuggestion adds a custom suggestion to the error
func (e *FetchError) WithSuggestion(suggestion string) *FetchError {
	e.Suggestion = suggestion
	return e
}

// WithURL adds URL context to the error (redacted in detailed output)
func (e *FetchError) WithURL(url string) *FetchError {
	e.URL = url
	return e
}

// WithRetryAfter sets the retry delay for rate limit errors
func (e *FetchError) WithRetryAfter(seconds int) *FetchError {
	e.RetryAfter = seconds
	return e
}

// WithContext adds context information to the error
func (e *FetchError) WithContext(key string, value interface{}) *FetchError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error
func (e *FetchError) WithCause(err error) *FetchError {
	e.Err = err
	return e
}

// IsRetryable returns true if the error is worth retrying later
func (e *FetchError) IsRetryable() bool {
	switch e.Type {
	case ErrTransientTransport, ErrRateLimit, ErrNoQuota:
		return true
	case ErrHostStatus:
		return e.Code >= 500
	default:
		return false
	}
}

// IsCritical returns true if the error is critical and should stop execution
func (e *FetchError) IsCritical() bool {
	return e.Severity == SeverityCritical
}

// AsFetchError unwraps err into a *FetchError
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// TypeOf returns the ErrorType carried by err, or fallback when err is not a FetchError
func TypeOf(err error, fallback ErrorType) ErrorType {
	if fe, ok := AsFetchError(err); ok {
		return fe.Type
	}
	return fallback
}

// HostStatusCode reports the status code of a HostStatus error
func HostStatusCode(err error) (int, bool) {
	fe, ok := AsFetchError(err)
	if !ok || fe.Type != ErrHostStatus {
		return 0, false
	}
	return fe.Code, true
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field      string                 `json:"field"`
	Message    string                 `json:"message"`
	Value      interface{}            `json:"value,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, " - ")
}

// DetailedError returns a detailed validation error message
func (e *ValidationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Validation Error for field '%s'", e.Field))
	parts = append(parts, fmt.Sprintf("Message: %s", e.Message))

	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("Provided value: %v", e.Value))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		sort.Strings(contextParts)
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewValidationErrorWithValue creates a ValidationError with the invalid value
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Context: make(map[string]interface{}),
	}
}

// WithSuggestion adds a suggestion to the validation error
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.Suggestion = suggestion
	return e
}

// WithContext adds context to the validation error
func (e *ValidationError) WithContext(key string, value interface{}) *ValidationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func getDefaultSuggestion(errorType ErrorType, code int) string {
	switch errorType {
	case ErrHostStatus:
		if code >= 500 {
			return "The content host is having problems. Try again later"
		}
		return "The content host rejected the request. The item may have been removed"
	case ErrNoQuota:
		return "Imgur credits are exhausted. Wait for the reset or configure a RapidAPI key"
	case ErrInvalidCredential:
		return "Set a valid imgur client id and secret (POSTFETCH_IMGUR_CLIENT_ID, POSTFETCH_IMGUR_CLIENT_SECRET)"
	case ErrTextSave:
		return "Check that the output directory is writable and has free space"
	case ErrTransientTransport:
		return "Check your internet connection and try again. Consider using a proxy if needed"
	case ErrRateLimit:
		return "Please wait before retrying"
	case ErrInvalidURL:
		return "The post does not link to a URL that can be downloaded"
	case ErrInvalidResponse:
		return "Invalid response from server. The API might have changed"
	case ErrDownloadFailed:
		return "Download failed. Check available disk space and network connection"
	case ErrUnsupportedSource:
		return "No extractor handles this kind of link"
	case ErrPermissionDenied:
		return "Permission denied. Check file/directory permissions"
	default:
		return "Please check the error details and try again"
	}
}

func getDefaultSeverity(errorType ErrorType) ErrorSeverity {
	switch errorType {
	case ErrRateLimit, ErrTransientTransport, ErrNoQuota:
		return SeverityWarning
	case ErrInvalidCredential, ErrPermissionDenied:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// redactSensitiveURL redacts query parameters that might carry credentials
func redactSensitiveURL(url string) string {
	if strings.Contains(url, "?") {
		parts := strings.Split(url, "?")
		return parts[0] + "?[REDACTED]"
	}
	return url
}

// Common error constructors

// NewHostError creates the error for a non-success, non-rate-limit status from a content host
func NewHostError(statusCode int, url string) *FetchError {
	return NewFetchError(statusCode, fmt.Sprintf("host returned status %d", statusCode), ErrHostStatus).
		WithURL(url)
}

// NewNoQuotaError is returned when neither the free nor the metered endpoint can be used
func NewNoQuotaError(resetIn int) *FetchError {
	return NewFetchError(0, "no imgur credits available and no fallback key configured", ErrNoQuota).
		WithRetryAfter(resetIn)
}

// NewInvalidCredentialError reports that no usable imgur session exists
func NewInvalidCredentialError(message string) *FetchError {
	return NewFetchError(403, message, ErrInvalidCredential)
}

// NewTransientTransportError wraps a network failure that survived local retries
func NewTransientTransportError(operation string, attempts int, cause error) *FetchError {
	return NewFetchError(0, fmt.Sprintf("network failure during %s after %d attempts", operation, attempts), ErrTransientTransport).
		WithCause(cause)
}

// NewRateLimitError creates an error for rate limiting that the caller should retry later
func NewRateLimitError(retryAfter int) *FetchError {
	return NewFetchError(429, "rate limit exceeded, try again later", ErrRateLimit).
		WithRetryAfter(retryAfter)
}

// NewInvalidResponseError is returned when a response body has an unexpected shape
func NewInvalidResponseError(url string, reason string) *FetchError {
	return NewFetchError(0, fmt.Sprintf("unexpected response: %s", reason), ErrInvalidResponse).
		WithURL(url)
}

// NewTextSaveError wraps a failure to write extracted text
func NewTextSaveError(path string, cause error) *FetchError {
	return NewFetchError(0, "failed to save text", ErrTextSave).
		WithContext("path", path).
		WithCause(cause)
}
