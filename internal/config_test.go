package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("POSTFETCH_WORKERS", "12")
	t.Setenv("POSTFETCH_IMGUR_CLIENT_ID", "client-1")
	t.Setenv("POSTFETCH_IMGUR_MASHAPE_KEY", "mashape-1")
	t.Setenv("POSTFETCH_DEDUP", "none")
	t.Setenv("POSTFETCH_DEBUG", "1")

	config := DefaultConfig()
	config.LoadFromEnv()

	if config.DefaultWorkers != 12 {
		t.Errorf("workers = %d, want 12", config.DefaultWorkers)
	}
	if config.ImgurClientID() != "client-1" || config.ImgurMashapeKey() != "mashape-1" {
		t.Errorf("imgur settings not loaded: %+v", config)
	}
	if config.DedupBackend != DedupNone {
		t.Errorf("dedup backend = %q", config.DedupBackend)
	}
	if !config.EnableDebug {
		t.Error("debug should be enabled")
	}
	if err := config.ValidateConfig(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestConfig_LoadFromEnvIgnoresOutOfRange(t *testing.T) {
	t.Setenv("POSTFETCH_WORKERS", "99")

	config := DefaultConfig()
	config.LoadFromEnv()

	if config.DefaultWorkers != 4 {
		t.Errorf("out of range workers should be ignored, got %d", config.DefaultWorkers)
	}
}

func TestConfig_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postfetch.yaml")
	content := `
output_dir: /srv/reddit
workers: 6
imgur_client_id: from-file
comment_file_format: md
dedup_backend: redis
redis_addr: cache:6379
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if config.OutputDir != "/srv/reddit" || config.DefaultWorkers != 6 {
		t.Errorf("file values not applied: %+v", config)
	}
	if config.ImgurID != "from-file" || config.CommentFileFormat != "md" {
		t.Errorf("file values not applied: %+v", config)
	}
	if config.PostFileFormat != DefaultTextFormat {
		t.Errorf("unset keys should keep defaults, got %q", config.PostFileFormat)
	}
	if config.DedupBackend != DedupRedis || config.RedisAddr != "cache:6379" {
		t.Errorf("dedup values not applied: %+v", config)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"workers", func(c *Config) { c.DefaultWorkers = 0 }},
		{"timeout", func(c *Config) { c.DefaultTimeout = 0 }},
		{"retries", func(c *Config) { c.MaxRetries = -1 }},
		{"output", func(c *Config) { c.OutputDir = " " }},
		{"dedup", func(c *Config) { c.DedupBackend = "mongo" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.ValidateConfig(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSignificantObjectFormats(t *testing.T) {
	var nilObject *SignificantObject
	if nilObject.PostFormat() != DefaultTextFormat || nilObject.CommentFormat() != DefaultTextFormat {
		t.Error("nil object should fall back to the default format")
	}

	object := DefaultConfig().DefaultObject("pics", ObjectSubreddit)
	object.CommentFileFormat = "html"
	if object.CommentFormat() != "html" || object.PostFormat() != "txt" {
		t.Errorf("unexpected formats: %+v", object)
	}
}

func TestQueueNotifier(t *testing.T) {
	notifier := NewQueueNotifier(2)

	notifier.NotifyOnce("invalid-client", "first")
	notifier.NotifyOnce("invalid-client", "second")
	notifier.Notify("other")
	notifier.Notify("dropped when full")
	notifier.Close()
	notifier.Notify("after close")

	var got []string
	for message := range notifier.Messages() {
		got = append(got, message)
	}

	if len(got) != 2 || got[0] != "first" || got[1] != "other" {
		t.Errorf("messages = %v", got)
	}
}

func TestExtractionOutcome(t *testing.T) {
	outcome := NewOutcome("p1", "direct")
	outcome.AddContent(ContentDescriptor{Path: ""})
	outcome.AddContent(ContentDescriptor{Path: "/tmp/a.jpg", Size: 3})
	if len(outcome.Content) != 1 {
		t.Fatalf("descriptors without path must be dropped, got %d", len(outcome.Content))
	}
	if !outcome.Succeeded() {
		t.Error("outcome should be pending/succeeded")
	}

	outcome.Fail(ErrNone, "first")
	outcome.FailWith(ErrDownloadFailed, "second", NewHostError(404, ""))

	if !outcome.Failed || outcome.ErrorKind != ErrHostStatus {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if outcome.ErrorMessage == "" {
		t.Error("failed outcome needs a message")
	}
}
