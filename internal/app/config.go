package app

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"github.com/joho/godotenv"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/catalog/saavn"
	"github.com/tejashwikalptaru/tunestream/internal/logger"
	"github.com/tejashwikalptaru/tunestream/internal/service"
)

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier; it scopes preferences and storage
	AppID string

	// AppName is the display name used for notifications
	AppName string

	// CatalogURL is the base URL of the catalog API
	CatalogURL string

	// PageSize is the number of songs per search page
	PageSize int

	// CacheSize is the number of search pages kept in memory
	CacheSize int

	// HTTPTimeout bounds catalog requests and audio downloads
	HTTPTimeout time.Duration

	// DownloadsDir overrides the app-private downloads directory
	DownloadsDir string

	// UseMockAudio replaces the audio device with an in-memory transport
	UseMockAudio bool

	// Notifications enables desktop now-playing notifications
	Notifications bool

	// LogLevel controls logging verbosity
	LogLevel slog.Level

	// LogFormat is "text" or "json"
	LogFormat string

	// LogOutput defaults to os.Stderr
	LogOutput io.Writer

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the configuration from the environment, with defaults
// for everything that is unset.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	catalogCfg := saavn.DefaultConfig()

	return Config{
		AppID:         "com.tunestream.app",
		AppName:       "TuneStream",
		CatalogURL:    getEnv("TUNESTREAM_CATALOG_URL", catalogCfg.BaseURL),
		PageSize:      envInt("TUNESTREAM_PAGE_SIZE", service.DefaultSessionConfig().PageSize),
		CacheSize:     envInt("TUNESTREAM_CACHE_SIZE", catalogCfg.CacheSize),
		HTTPTimeout:   envDuration("TUNESTREAM_HTTP_TIMEOUT", catalogCfg.Timeout),
		DownloadsDir:  os.Getenv("TUNESTREAM_DOWNLOADS_DIR"),
		UseMockAudio:  envBool("TUNESTREAM_MOCK_AUDIO", false),
		Notifications: envBool("TUNESTREAM_NOTIFICATIONS", true),
		LogLevel:      loggerCfg.Level,
		LogFormat:     loggerCfg.Format,
	}
}

// LoadConfig reads a .env file from the working directory, if present, and
// returns DefaultConfig. Variables already set in the environment win.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return DefaultConfig(), nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
