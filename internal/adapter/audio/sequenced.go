// Package audio provides transport decorators shared by every audio backend.
package audio

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// Sequenced serializes every operation on the wrapped transport and makes the
// most recently reserved load win.
//
// Each load waits for the previous operation (including the unload it implies)
// to finish. A load whose ticket is no longer the newest when its turn comes is
// skipped with domain.ErrSuperseded, so an older request can never overwrite a
// newer one no matter how the callers are scheduled.
type Sequenced struct {
	inner  ports.AudioTransport
	logger *slog.Logger

	opMu   sync.Mutex
	issued atomic.Uint64
}

// NewSequenced wraps inner.
func NewSequenced(inner ports.AudioTransport, logger *slog.Logger) *Sequenced {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sequenced{inner: inner, logger: logger}
}

type ticket struct {
	owner *Sequenced
	seq   uint64
}

// Reserve takes the next position in load order.
func (s *Sequenced) Reserve() ports.LoadTicket {
	return &ticket{owner: s, seq: s.issued.Add(1)}
}

func (t *ticket) Load(ctx context.Context, uri string) error {
	s := t.owner
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if latest := s.issued.Load(); t.seq != latest {
		s.logger.Debug("skipping superseded load",
			slog.String("uri", uri),
			slog.Uint64("ticket", t.seq),
			slog.Uint64("latest", latest))
		return domain.ErrSuperseded
	}

	return s.inner.Load(ctx, uri)
}

// Load reserves a ticket and loads uri with it.
func (s *Sequenced) Load(ctx context.Context, uri string) error {
	return s.Reserve().Load(ctx, uri)
}

// Pause pauses the loaded resource once any in-flight load has finished.
func (s *Sequenced) Pause(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.inner.Pause(ctx)
}

// Resume resumes the loaded resource once any in-flight load has finished.
func (s *Sequenced) Resume(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.inner.Resume(ctx)
}

// Seek seeks the loaded resource once any in-flight load has finished.
func (s *Sequenced) Seek(ctx context.Context, position time.Duration) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.inner.Seek(ctx, position)
}

// LoadedURI does not wait for in-flight loads.
func (s *Sequenced) LoadedURI() string {
	return s.inner.LoadedURI()
}

// Statuses returns the wrapped transport's status stream.
func (s *Sequenced) Statuses() <-chan domain.TransportStatus {
	return s.inner.Statuses()
}

// Close closes the wrapped transport.
func (s *Sequenced) Close() error {
	return s.inner.Close()
}

var _ ports.SequencedTransport = (*Sequenced)(nil)
