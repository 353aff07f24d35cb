package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"postfetch/internal"
	"postfetch/utils"
)

var (
	configPath string
	outputDir  string
	workers    int
	rateLimit  string
	proxyURL   string
	reportFile string
	quiet      bool
	debug      bool
	logLevel   string
	logFile    string
	config     *internal.Config
)

var rootCmd = &cobra.Command{
	Use:     "postfetch",
	Short:   "Download the content linked from reddit posts",
	Version: "v1.0.0",
	Long: `postfetch saves the media and text behind reddit posts: direct images and
videos, imgur albums and images, preview images of linked pages, self-post text
and comments.

Examples:
  postfetch posts saved.json --object pics
  postfetch subreddit wallpapers --sort hot --limit 50 --comments
  postfetch credits

Environment Variables:
  POSTFETCH_IMGUR_CLIENT_ID    Imgur application client id
  POSTFETCH_IMGUR_MASHAPE_KEY  RapidAPI key used once the free credits run out
  POSTFETCH_WORKERS            Default number of workers (1-32)
  POSTFETCH_OUTPUT             Output directory
  POSTFETCH_RATE_LIMIT         Bandwidth limit (e.g., 5M)
  POSTFETCH_DEDUP              Duplicate ledger: sqlite, redis or none
  REDDIT_CLIENT_ID             Reddit API credentials; read-only access without them`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		internal.GetLogger().AddRedactor(internal.NewValueRedactor(
			config.ImgurID, config.ImgurSecret, config.ImgurMashape, config.RedditSecret, config.RedditPassword))

		internal.LogDebug("Configuration loaded: workers=%d, timeout=%d, dedup=%s, output=%s",
			config.DefaultWorkers, config.DefaultTimeout, config.DedupBackend, config.OutputDir)
		return nil
	},
}

// loadConfiguration layers defaults, the .env file, the YAML file, the environment
// and finally the command line flags
func loadConfiguration() error {
	if err := godotenv.Load(); err == nil {
		internal.LogDebug("Loaded environment from .env")
	}

	config = internal.DefaultConfig()
	if configPath != "" {
		if err := config.LoadFile(configPath); err != nil {
			return err
		}
	}
	config.LoadFromEnv()

	if outputDir != "" {
		config.OutputDir = outputDir
	}
	if workers > 0 {
		config.DefaultWorkers = workers
	}
	if rateLimit != "" {
		config.RateLimit = rateLimit
	}
	if proxyURL != "" {
		config.ProxyURL = proxyURL
	}
	if reportFile != "" {
		config.ReportFile = reportFile
	}

	if debug {
		config.EnableDebug = true
		config.LogLevel = "debug"
	}
	if quiet {
		config.QuietMode = true
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}

	if err := config.ValidateConfig(); err != nil {
		return err
	}

	if _, err := utils.ParseRateLimit(config.RateLimit); err != nil {
		return internal.NewValidationErrorWithValue("rate_limit", err.Error(), config.RateLimit).
			WithSuggestion("Use formats like 1M (1 MB/s), 500K (500 KB/s), 2G (2 GB/s), or 1024 (1024 bytes/s)")
	}

	if config.ProxyURL != "" && !strings.Contains(config.ProxyURL, "://") {
		return internal.NewValidationErrorWithValue("proxy_url", "proxy URL needs a scheme", config.ProxyURL).
			WithSuggestion("Use http://, https://, or socks5://")
	}

	return nil
}

// Execute runs the root command and logs typed errors with their details
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	var validationErr *internal.ValidationError
	if fe, ok := internal.AsFetchError(err); ok {
		internal.LogFetchError(fe)
	} else if errors.As(err, &validationErr) {
		internal.LogValidationError(validationErr)
	}
	return err
}

func init() {
	config = internal.DefaultConfig()

	rootCmd.AddCommand(postsCmd, subredditCmd, creditsCmd, checkCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.StringVarP(&outputDir, "output", "o", "", fmt.Sprintf("Output directory (env: POSTFETCH_OUTPUT) (default %q)", config.OutputDir))
	flags.IntVarP(&workers, "workers", "w", 0, fmt.Sprintf("Number of concurrent extractions (1-32) (env: POSTFETCH_WORKERS) (default %d)", config.DefaultWorkers))
	flags.StringVarP(&rateLimit, "limit-rate", "r", "", "Bandwidth limit (e.g., 5M for 5MB/s) (env: POSTFETCH_RATE_LIMIT)")
	flags.StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS proxy URL (env: POSTFETCH_PROXY)")
	flags.StringVar(&reportFile, "report", "", "Append an NDJSON outcome report to this file (env: POSTFETCH_REPORT)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bar output")

	flags.BoolVarP(&debug, "debug", "d", false, "Enable debug logging with file and line information (env: POSTFETCH_DEBUG)")
	flags.StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error) (env: POSTFETCH_LOG_LEVEL)")
	flags.StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (env: POSTFETCH_LOG_FILE)")
}
