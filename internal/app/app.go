// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/audio"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/audio/beep"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/catalog/saavn"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/filestore"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/notify"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/repository/prefs"
	"github.com/tejashwikalptaru/tunestream/internal/logger"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
	"github.com/tejashwikalptaru/tunestream/internal/service"
)

// Application is the root application structure that holds all dependencies.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Restoring persisted state on Startup
// - Releasing goroutines and devices on Shutdown
type Application struct {
	// Core dependencies
	logger  *slog.Logger
	fyneApp fyne.App
	config  Config

	// Infrastructure
	eventBus  *eventbus.SyncEventBus
	transport ports.AudioTransport
	catalog   *saavn.Client
	files     *filestore.Local
	notifier  ports.Notifier

	// Services
	session *service.SessionService
	offline *service.OfflineService

	// Lifecycle
	watchCancel  context.CancelFunc
	watchDone    chan struct{}
	startOnce    sync.Once
	shutdownOnce sync.Once
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	app := &Application{config: config}

	// Step 1: Create Fyne application (preferences and app-private storage)
	if config.TestFyneApp != nil {
		app.fyneApp = config.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(config.AppID)
	}

	// Step 2: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  config.LogLevel,
		Format: config.LogFormat,
		Output: config.LogOutput,
	})
	app.logger.Debug("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("version", GetVersionInfo().FullString()))

	// Step 3: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus()
	app.eventBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))

	// Step 4: Create the audio transport
	app.transport = app.newTransport()

	// Step 5: Create adapters
	catalog, err := saavn.New(saavn.Config{
		BaseURL:   config.CatalogURL,
		Timeout:   config.HTTPTimeout,
		CacheSize: config.CacheSize,
	}, app.logger.With(slog.String("component", "catalog")))
	if err != nil {
		_ = app.transport.Close()
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}
	app.catalog = catalog

	app.files = filestore.NewLocal(config.HTTPTimeout, app.logger.With(slog.String("component", "filestore")))

	if config.Notifications {
		app.notifier = notify.NewDesktop(config.AppName, app.logger.With(slog.String("component", "notify")))
	} else {
		app.notifier = notify.Log{Logger: app.logger.With(slog.String("component", "notify"))}
	}

	// Step 6: Create repositories
	preferences := app.fyneApp.Preferences()
	sessionRepo := prefs.NewSessionRepository(preferences)
	downloadRepo := prefs.NewDownloadRepository(preferences)

	// Step 7: Create services (with dependency injection)
	app.offline = service.NewOfflineService(
		app.logger.With(slog.String("service", "offline")),
		app.files,
		downloadRepo,
		app.eventBus,
		app.downloadsDir(),
	)

	sessionCfg := service.DefaultSessionConfig()
	sessionCfg.PageSize = config.PageSize
	app.session = service.NewSessionService(
		app.logger.With(slog.String("service", "session")),
		audio.NewSequenced(app.transport, app.logger.With(slog.String("component", "transport"))),
		app.catalog,
		sessionRepo,
		app.offline,
		app.notifier,
		app.eventBus,
		sessionCfg,
	)

	return app, nil
}

// newTransport opens the audio device, falling back to the in-memory
// transport when mock audio is requested or no device can be opened.
func (a *Application) newTransport() ports.AudioTransport {
	if !a.config.UseMockAudio {
		transport, err := beep.NewTransport(beep.DefaultConfig(), a.logger.With(slog.String("transport", "beep")))
		if err == nil {
			return transport
		}
		a.logger.Warn("audio device unavailable, using silent transport", slog.String("error", err.Error()))
	}

	transport := mock.NewTransport()
	transport.SetLogger(a.logger.With(slog.String("transport", "mock")))
	return transport
}

func (a *Application) downloadsDir() string {
	if a.config.DownloadsDir != "" {
		return a.config.DownloadsDir
	}
	return filepath.Join(a.fyneApp.Storage().RootURI().Path(), "downloads")
}

// Startup restores persisted state and starts watching the downloads directory.
// Offline entries are reconciled first so a restored song can resolve to its local copy.
func (a *Application) Startup(ctx context.Context) error {
	var err error
	a.startOnce.Do(func() {
		a.offline.HydrateOffline(ctx)
		a.session.HydrateRecentlyPlayed()
		a.session.HydrateQueue()
		if err = a.session.HydratePlayer(ctx); err != nil {
			return
		}

		watchCtx, cancel := context.WithCancel(context.Background())
		a.watchCancel = cancel
		a.watchDone = make(chan struct{})
		go func() {
			defer close(a.watchDone)
			if err := a.offline.Watch(watchCtx); err != nil {
				a.logger.Warn("downloads watcher stopped", slog.String("error", err.Error()))
			}
		}()

		a.logger.Info("application started", slog.String("downloads_dir", a.offline.Dir()))
	})
	return err
}

// Shutdown gracefully shuts down the application. Safe to call more than once.
func (a *Application) Shutdown() error {
	var errs []error
	a.shutdownOnce.Do(func() {
		a.logger.Debug("shutting down application")

		if a.watchCancel != nil {
			a.watchCancel()
			<-a.watchDone
		}

		// Shutdown services (in reverse order of creation)
		if err := a.session.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("session: %w", err))
		}

		if err := a.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("transport: %w", err))
		}

		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}

		a.logger.Debug("application shutdown complete")
	})
	return errors.Join(errs...)
}

// Session returns the playback session store.
func (a *Application) Session() *service.SessionService {
	return a.session
}

// Offline returns the download manager.
func (a *Application) Offline() *service.OfflineService {
	return a.offline
}

// Catalog returns the catalog client.
func (a *Application) Catalog() ports.Catalog {
	return a.catalog
}

// Transport returns the audio transport the session plays through.
func (a *Application) Transport() ports.AudioTransport {
	return a.transport
}

// EventBus returns the application event bus.
func (a *Application) EventBus() ports.EventBus {
	return a.eventBus
}

// Logger returns the root logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Config returns the configuration the application was built with.
func (a *Application) Config() Config {
	return a.config
}

// FyneApp returns the underlying Fyne app.
func (a *Application) FyneApp() fyne.App {
	return a.fyneApp
}
