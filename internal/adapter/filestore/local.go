// Package filestore implements ports.FileStore on the local filesystem.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/fsnotify/fsnotify"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// partialSuffix marks in-progress downloads. Completed files are renamed into place.
const partialSuffix = ".part"

// Local is the filesystem-backed download store.
type Local struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewLocal creates a file store. timeout bounds each download (0 means none).
func NewLocal(timeout time.Duration, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Local{http: client, logger: logger}
}

// EnsureDir creates dir and its parents.
func (l *Local) EnsureDir(_ context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// Download writes url to a temporary sibling of path and renames it into
// place once the transfer completed, so path never holds a partial file.
func (l *Local) Download(ctx context.Context, url, path string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+partialSuffix)

	started := time.Now()
	resp, err := l.http.R().SetContext(ctx).SetOutput(tmp).Get(url)
	if err != nil {
		l.discard(tmp)
		return fmt.Errorf("download failed: %w", err)
	}
	if resp.IsError() {
		l.discard(tmp)
		return fmt.Errorf("download failed with status %d", resp.StatusCode())
	}

	if err := os.Rename(tmp, path); err != nil {
		l.discard(tmp)
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	l.logger.Debug("download finished",
		slog.String("path", path),
		slog.Int64("bytes", resp.Size()),
		slog.Duration("took", time.Since(started)))
	return nil
}

func (l *Local) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("failed to remove partial download", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Exists reports whether path exists.
func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Remove deletes path. A missing file is not an error.
func (l *Local) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Probe reads the container type from the file's tags. Untagged files report "".
func (l *Local) Probe(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, fileType, err := tag.Identify(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to identify %s: %w", path, err)
	}
	return string(fileType), nil
}

// Watch reports files that disappear from dir until ctx is done.
func (l *Local) Watch(ctx context.Context, dir string, onRemoved func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasSuffix(event.Name, partialSuffix) {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				onRemoved(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("downloads watcher error", slog.String("error", err.Error()))
		}
	}
}

var _ ports.FileStore = (*Local)(nil)
