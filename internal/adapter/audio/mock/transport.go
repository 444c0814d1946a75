// Package mock provides an in-memory implementation of the AudioTransport interface.
// It is used for testing services without an audio device, and by --mock-audio.
package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// DefaultDuration is the simulated length of every loaded resource.
const DefaultDuration = 3 * time.Minute

// Transport simulates a single-resource audio player in memory.
//
// Thread-safety: This implementation is thread-safe. Concurrent Loads are NOT
// serialized, which is what lets tests reproduce the ordering hazard that
// audio.Sequenced removes.
type Transport struct {
	logger *slog.Logger

	mu       sync.Mutex
	uri      string
	playing  bool
	position time.Duration
	duration time.Duration
	closed   bool

	loads     []string
	seeks     []time.Duration
	delays    map[string]time.Duration
	failLoads map[string]error
	failAll   error

	statuses  chan domain.TransportStatus
	done      chan struct{}
	sendMu    sync.RWMutex
	sendDone  bool
	closeOnce sync.Once
}

// NewTransport creates a new mock transport.
func NewTransport() *Transport {
	return &Transport{
		duration:  DefaultDuration,
		delays:    make(map[string]time.Duration),
		failLoads: make(map[string]error),
		statuses:  make(chan domain.TransportStatus, 64),
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for this transport.
func (m *Transport) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetLoadDelay makes loads of uri take d (for ordering tests).
func (m *Transport) SetLoadDelay(uri string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[uri] = d
}

// SetFailLoad makes loads of uri fail with err. A nil err clears the failure.
func (m *Transport) SetFailLoad(uri string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failLoads, uri)
		return
	}
	m.failLoads[uri] = err
}

// SetFailAll makes every operation fail with err. A nil err clears the failure.
func (m *Transport) SetFailAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = err
}

// SetDuration changes the simulated duration of loaded resources.
func (m *Transport) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// Load unloads the current resource, waits the configured delay and loads uri.
func (m *Transport) Load(ctx context.Context, uri string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrTransportClosed
	}
	m.uri = ""
	m.playing = false
	m.position = 0
	if m.failAll != nil {
		err := m.failAll
		m.mu.Unlock()
		return domain.NewTransportError("load", uri, err)
	}
	delay := m.delays[uri]
	failure := m.failLoads[uri]
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if failure != nil {
		return domain.NewTransportError("load", uri, failure)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrTransportClosed
	}
	m.uri = uri
	m.playing = true
	m.loads = append(m.loads, uri)
	duration := m.duration
	logger := m.logger
	m.mu.Unlock()

	if logger != nil {
		logger.Debug("mock transport loaded", slog.String("uri", uri))
	}

	m.Emit(domain.TransportStatus{URI: uri, IsLoaded: true, DurationMillis: duration.Milliseconds()})
	return nil
}

// Pause pauses playback.
func (m *Transport) Pause(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoadedLocked("pause"); err != nil {
		return err
	}
	m.playing = false
	return nil
}

// Resume resumes playback.
func (m *Transport) Resume(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoadedLocked("resume"); err != nil {
		return err
	}
	m.playing = true
	return nil
}

// Seek sets the playback position.
func (m *Transport) Seek(_ context.Context, position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoadedLocked("seek"); err != nil {
		return err
	}
	if position < 0 || position > m.duration {
		return domain.ErrInvalidPosition
	}
	m.position = position
	m.seeks = append(m.seeks, position)
	return nil
}

func (m *Transport) checkLoadedLocked(op string) error {
	if m.closed {
		return domain.ErrTransportClosed
	}
	if m.failAll != nil {
		return domain.NewTransportError(op, m.uri, m.failAll)
	}
	if m.uri == "" {
		return domain.ErrNotLoaded
	}
	return nil
}

// LoadedURI returns the loaded URI.
func (m *Transport) LoadedURI() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uri
}

// IsPlaying reports whether the loaded resource is playing.
func (m *Transport) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uri != "" && m.playing
}

// Position returns the simulated position.
func (m *Transport) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Loads returns every URI that completed loading, in completion order.
func (m *Transport) Loads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loads...)
}

// Seeks returns every successful seek position.
func (m *Transport) Seeks() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seeks...)
}

// Emit pushes a status event to the consumer. It blocks while the buffer is full
// and drops the event once the transport is closed.
func (m *Transport) Emit(status domain.TransportStatus) {
	m.sendMu.RLock()
	defer m.sendMu.RUnlock()
	if m.sendDone {
		return
	}
	select {
	case m.statuses <- status:
	case <-m.done:
	}
}

// Progress emits a loaded status for the current resource at position.
func (m *Transport) Progress(position time.Duration) {
	m.mu.Lock()
	uri, duration := m.uri, m.duration
	m.position = position
	m.mu.Unlock()

	m.Emit(domain.TransportStatus{
		URI:            uri,
		IsLoaded:       uri != "",
		PositionMillis: position.Milliseconds(),
		DurationMillis: duration.Milliseconds(),
	})
}

// Finish simulates the current resource playing to its end.
func (m *Transport) Finish() {
	m.mu.Lock()
	uri, duration := m.uri, m.duration
	m.playing = false
	m.position = duration
	m.mu.Unlock()

	m.Emit(domain.TransportStatus{
		URI:            uri,
		IsLoaded:       true,
		PositionMillis: duration.Milliseconds(),
		DurationMillis: duration.Milliseconds(),
		DidJustFinish:  true,
	})
}

// Statuses returns the status stream.
func (m *Transport) Statuses() <-chan domain.TransportStatus {
	return m.statuses
}

// Close unloads and closes the status stream. Safe to call more than once.
func (m *Transport) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.uri = ""
		m.playing = false
		m.mu.Unlock()

		close(m.done)
		m.sendMu.Lock()
		m.sendDone = true
		close(m.statuses)
		m.sendMu.Unlock()
	})
	return nil
}

var _ ports.AudioTransport = (*Transport)(nil)
