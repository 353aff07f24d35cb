package internal

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
)

func TestSecureLogger_RedactSensitiveData(t *testing.T) {
	logger := NewDefaultLogger(false, false)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "redact_client_id",
			input:    "Authorization: Client-ID abc123def456",
			expected: "Authorization: Client-ID [REDACTED]",
		},
		{
			name:     "redact_mashape_key",
			input:    "X-Mashape-Key: xyz789; retrying",
			expected: "X-Mashape-Key: [REDACTED]; retrying",
		},
		{
			name:     "redact_bearer_token",
			input:    "Authorization: Bearer token123",
			expected: "Authorization: Bearer [REDACTED]",
		},
		{
			name:     "redact_url_parameters",
			input:    "https://example.com/api?access_token=secret123&other=param",
			expected: "https://example.com/api?access_token=[REDACTED]&other=param",
		},
		{
			name:     "no_sensitive_data",
			input:    "This is a normal log message",
			expected: "This is a normal log message",
		},
		{
			name:     "multiple_sensitive_items",
			input:    "Client-ID secret1 then Client-ID secret2",
			expected: "Client-ID [REDACTED] then Client-ID [REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := logger.redactSensitiveData(tt.input)
			if result != tt.expected {
				t.Errorf("redactSensitiveData() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestSecureLogger_LogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, LogLevelWarn, false, false)

	logger.Debug("debug message")
	logger.Info("info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should not be logged when level is WARN")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should not be logged when level is WARN")
	}

	buf.Reset()
	logger.Warn("warn message")
	logger.Error("error message")

	output = buf.String()
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be logged when level is WARN")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should be logged when level is WARN")
	}
}

func TestSecureLogger_QuietMode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, LogLevelDebug, false, true)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	if output := buf.String(); output != "" {
		t.Errorf("No messages should be logged in quiet mode except errors, got: %s", output)
	}

	logger.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Error("Error messages should be logged even in quiet mode")
	}
}

func TestSecureLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, LogLevelInfo, false, false)

	logger.ErrorFields("Failed to save content text", Fields{
		"subreddit": "pics",
		"post_id":   "abc",
		"title":     "two words",
	})

	output := buf.String()
	if !strings.Contains(output, "ERROR Failed to save content text post_id=abc subreddit=pics title=\"two words\"") {
		t.Errorf("fields should be sorted and quoted, got: %s", output)
	}

	buf.Reset()
	logger.DebugFields("hidden", Fields{"k": "v"})
	if buf.Len() != 0 {
		t.Errorf("debug fields should be filtered at info level, got: %s", buf.String())
	}
}

func TestSecureLogger_FieldsAreRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, LogLevelInfo, false, false)

	logger.WarnFields("request failed", Fields{"url": "https://api.example.com/3/credits?client_secret=s3cr3t"})

	output := buf.String()
	if strings.Contains(output, "s3cr3t") {
		t.Errorf("secret leaked into log: %s", output)
	}
}

func TestSecureLogger_DebugMode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, LogLevelDebug, true, false)

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, ".go:") {
		t.Errorf("Debug mode should include file:line information, got: %s", output)
	}
}

func TestSecureLogger_LogHTTPRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, LogLevelDebug, false, false)

	req, _ := http.NewRequest("GET", "https://api.imgur.com/3/album/abc/images", nil)
	req.Header.Set("Authorization", "Client-ID 1234567")
	req.Header.Set("X-Mashape-Key", "mashape-secret")
	req.Header.Set("User-Agent", "postfetch-test")

	logger.LogHTTPRequest(req)

	output := buf.String()
	if strings.Contains(output, "1234567") || strings.Contains(output, "mashape-secret") {
		t.Errorf("credentials leaked: %s", output)
	}
	if !strings.Contains(output, "postfetch-test") {
		t.Errorf("non-sensitive headers should be kept: %s", output)
	}
}

func TestSecureLogger_ValueRedactor(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, LogLevelInfo, false, false)
	logger.AddRedactor(NewValueRedactor("s3cr3t-client", "", "ab"))

	logger.Info("using client s3cr3t-client for ab")

	output := buf.String()
	if strings.Contains(output, "s3cr3t-client") {
		t.Errorf("secret should be redacted: %s", output)
	}
	if !strings.Contains(output, "for ab") {
		t.Errorf("short values must be left alone: %s", output)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"bogus":   LogLevelInfo,
	}
	for input, want := range tests {
		if got := parseLogLevel(input); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
