package internal

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Fields carries contextual values for a log line (post id, subreddit, url...)
type Fields map[string]interface{}

// SecureLogger provides leveled logging with credential redaction
type SecureLogger struct {
	logger    *log.Logger
	mutex     sync.RWMutex
	level     LogLevel
	debug     bool
	quiet     bool
	redactors []Redactor
}

// Redactor defines an interface for redacting sensitive information
type Redactor interface {
	Redact(input string) string
}

// CredentialRedactor redacts API credentials from header-like text
type CredentialRedactor struct{}

func (r *CredentialRedactor) Redact(input string) string {
	patterns := []string{
		"Client-ID ",
		"X-Mashape-Key:",
		"X-RapidAPI-Key:",
		"Authorization:",
		"Bearer ",
	}

	result := input
	for _, pattern := range patterns {
		lowerPattern := strings.ToLower(pattern)
		searchFrom := 0
		for {
			lower := strings.ToLower(result)
			index := strings.Index(lower[searchFrom:], lowerPattern)
			if index == -1 {
				break
			}
			start := searchFrom + index + len(pattern)
			for start < len(result) && result[start] == ' ' {
				start++
			}
			end := start
			for end < len(result) && result[end] != ' ' && result[end] != ';' && result[end] != '\n' && result[end] != '\r' && result[end] != ',' {
				end++
			}
			token := result[start:end]
			if strings.EqualFold(token, "Client-ID") || strings.EqualFold(token, "Bearer") {
				// the scheme patterns redact the value that follows
				searchFrom = end
				continue
			}
			if end > start && token != "[REDACTED]" {
				result = result[:start] + "[REDACTED]" + result[end:]
				end = start + len("[REDACTED]")
			}
			searchFrom = end
		}
	}
	return result
}

// URLRedactor redacts sensitive URL parameters
type URLRedactor struct{}

func (r *URLRedactor) Redact(input string) string {
	sensitiveParams := []string{
		"access_token=",
		"client_secret=",
		"token=",
		"key=",
		"secret=",
		"password=",
	}

	result := input
	for _, param := range sensitiveParams {
		lower := strings.ToLower(result)
		index := strings.Index(lower, param)
		if index == -1 {
			continue
		}
		start := index + len(param)
		end := start
		for end < len(result) && result[end] != '&' && result[end] != ' ' && result[end] != '\n' {
			end++
		}
		if end > start {
			result = result[:start] + "[REDACTED]" + result[end:]
		}
	}
	return result
}

// ValueRedactor masks configured secrets wherever they appear
type ValueRedactor struct {
	values []string
}

// NewValueRedactor ignores empty and very short values
func NewValueRedactor(values ...string) *ValueRedactor {
	r := &ValueRedactor{}
	for _, value := range values {
		if len(value) >= 4 {
			r.values = append(r.values, value)
		}
	}
	return r
}

func (r *ValueRedactor) Redact(input string) string {
	for _, value := range r.values {
		input = strings.ReplaceAll(input, value, "[REDACTED]")
	}
	return input
}

// NewSecureLogger creates a new secure logger
func NewSecureLogger(output io.Writer, level LogLevel, debug, quiet bool) *SecureLogger {
	return &SecureLogger{
		logger: log.New(output, "", 0), // formatting is done by formatMessage
		level:  level,
		debug:  debug,
		quiet:  quiet,
		redactors: []Redactor{
			&CredentialRedactor{},
			&URLRedactor{},
		},
	}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger(debug, quiet bool) *SecureLogger {
	level := LogLevelInfo
	if debug {
		level = LogLevelDebug
	}
	if quiet {
		level = LogLevelError
	}

	return NewSecureLogger(os.Stderr, level, debug, quiet)
}

func (sl *SecureLogger) redactSensitiveData(input string) string {
	result := input
	for _, redactor := range sl.redactors {
		result = redactor.Redact(result)
	}
	return result
}

func (sl *SecureLogger) formatMessage(level LogLevel, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	if sl.debug {
		for depth := 3; depth <= 6; depth++ {
			_, file, line, ok := runtime.Caller(depth)
			if ok && !strings.HasSuffix(file, "logger.go") && !strings.HasSuffix(file, "log.go") {
				parts := strings.Split(file, "/")
				filename := parts[len(parts)-1]
				return fmt.Sprintf("[%s] %s %s:%d %s", timestamp, level.String(), filename, line, message)
			}
		}
	}

	return fmt.Sprintf("[%s] %s %s", timestamp, level.String(), message)
}

func (sl *SecureLogger) shouldLog(level LogLevel) bool {
	sl.mutex.RLock()
	defer sl.mutex.RUnlock()
	if sl.quiet && level > LogLevelError {
		return false
	}
	return level <= sl.level
}

func (sl *SecureLogger) write(level LogLevel, message string) {
	sl.mutex.RLock()
	defer sl.mutex.RUnlock()
	message = sl.redactSensitiveData(message)
	sl.logger.Print(sl.formatMessage(level, message))
}

// formatFields renders fields as sorted key=value pairs
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(value, " \t\"") {
			value = fmt.Sprintf("%q", value)
		}
		parts = append(parts, k+"="+value)
	}
	return strings.Join(parts, " ")
}

func (sl *SecureLogger) logFields(level LogLevel, message string, fields Fields) {
	if !sl.shouldLog(level) {
		return
	}
	if rendered := formatFields(fields); rendered != "" {
		message = message + " " + rendered
	}
	sl.write(level, message)
}

// Error logs an error message
func (sl *SecureLogger) Error(format string, args ...interface{}) {
	if !sl.shouldLog(LogLevelError) {
		return
	}
	sl.write(LogLevelError, fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (sl *SecureLogger) Warn(format string, args ...interface{}) {
	if !sl.shouldLog(LogLevelWarn) {
		return
	}
	sl.write(LogLevelWarn, fmt.Sprintf(format, args...))
}

// Info logs an info message
func (sl *SecureLogger) Info(format string, args ...interface{}) {
	if !sl.shouldLog(LogLevelInfo) {
		return
	}
	sl.write(LogLevelInfo, fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func (sl *SecureLogger) Debug(format string, args ...interface{}) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}
	sl.write(LogLevelDebug, fmt.Sprintf(format, args...))
}

// ErrorFields logs message with contextual fields at error level
func (sl *SecureLogger) ErrorFields(message string, fields Fields) {
	sl.logFields(LogLevelError, message, fields)
}

// WarnFields logs message with contextual fields at warn level
func (sl *SecureLogger) WarnFields(message string, fields Fields) {
	sl.logFields(LogLevelWarn, message, fields)
}

// InfoFields logs message with contextual fields at info level
func (sl *SecureLogger) InfoFields(message string, fields Fields) {
	sl.logFields(LogLevelInfo, message, fields)
}

// DebugFields logs message with contextual fields at debug level
func (sl *SecureLogger) DebugFields(message string, fields Fields) {
	sl.logFields(LogLevelDebug, message, fields)
}

// LogHTTPRequest logs an HTTP request with sensitive headers redacted
func (sl *SecureLogger) LogHTTPRequest(req *http.Request) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}

	sanitizedHeaders := make(map[string]string)
	for name, values := range req.Header {
		if sl.isSensitiveHeader(name) {
			sanitizedHeaders[name] = "[REDACTED]"
		} else {
			sanitizedHeaders[name] = strings.Join(values, ", ")
		}
	}

	sl.Debug("HTTP Request: %s %s Headers: %v", req.Method, req.URL.String(), sanitizedHeaders)
}

// LogHTTPResponse logs an HTTP response status
func (sl *SecureLogger) LogHTTPResponse(resp *http.Response) {
	if !sl.shouldLog(LogLevelDebug) {
		return
	}
	target := ""
	if resp.Request != nil && resp.Request.URL != nil {
		target = resp.Request.URL.String()
	}
	sl.Debug("HTTP Response: %s %s", resp.Status, target)
}

func (sl *SecureLogger) isSensitiveHeader(name string) bool {
	sensitiveHeaders := []string{
		"authorization",
		"cookie",
		"x-mashape-key",
		"x-rapidapi-key",
		"x-api-key",
		"token",
	}

	lowerName := strings.ToLower(name)
	for _, sensitive := range sensitiveHeaders {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// AddRedactor adds a custom redactor
func (sl *SecureLogger) AddRedactor(redactor Redactor) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.redactors = append(sl.redactors, redactor)
}
