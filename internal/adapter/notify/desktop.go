// Package notify implements the now-playing notifier.
package notify

import (
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// Title is the heading of every now-playing notification.
const Title = "Now playing"

// Desktop shows now-playing notifications through the OS notification service.
type Desktop struct {
	send   func(title, body string) error
	logger *slog.Logger

	mu      sync.Mutex
	current string
}

// NewDesktop creates a desktop notifier.
func NewDesktop(appName string, logger *slog.Logger) *Desktop {
	if appName != "" {
		beeep.AppName = appName
	}
	return newDesktop(func(title, body string) error {
		return beeep.Notify(title, body, "")
	}, logger)
}

func newDesktop(send func(title, body string) error, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Desktop{send: send, logger: logger}
}

// Show posts the song title and artist. Posting the text already shown is skipped.
func (d *Desktop) Show(title, subtitle string) error {
	body := title
	if subtitle != "" {
		body = title + " – " + subtitle
	}

	d.mu.Lock()
	if d.current == body {
		d.mu.Unlock()
		return nil
	}
	d.current = body
	d.mu.Unlock()

	if err := d.send(Title, body); err != nil {
		d.mu.Lock()
		d.current = ""
		d.mu.Unlock()
		return err
	}

	d.logger.Debug("now playing notification shown", slog.String("body", body))
	return nil
}

// Clear forgets the shown notification. Posted desktop notifications expire
// on their own and cannot be retracted.
func (d *Desktop) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.current = ""
	return nil
}

// Current returns the text of the shown notification, or "".
func (d *Desktop) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Log is a notifier that only writes to the log, used when notifications are disabled.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Show(title, subtitle string) error {
	if l.Logger != nil {
		l.Logger.Info("now playing", slog.String("title", title), slog.String("artist", subtitle))
	}
	return nil
}

func (l Log) Clear() error { return nil }

var (
	_ ports.Notifier = (*Desktop)(nil)
	_ ports.Notifier = Log{}
)
