//go:build (linux && cgo) || windows || darwin

package beep

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// Available reports whether this build can drive an audio device.
const Available = true

const sampleRate = beep.SampleRate(44100)

// Transport is an AudioTransport backed by the beep speaker.
type Transport struct {
	logger *slog.Logger
	client *resty.Client
	cfg    Config

	mu          sync.Mutex
	initialized bool
	uri         string
	gen         uint64
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	closed      bool

	statuses chan domain.TransportStatus
	done     chan struct{}
	sendMu   sync.RWMutex
	wg       sync.WaitGroup
	once     sync.Once
}

// NewTransport creates a transport and starts its progress reporter.
func NewTransport(cfg Config, logger *slog.Logger) (*Transport, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultConfig().ProgressInterval
	}

	t := &Transport{
		logger:   logger,
		client:   resty.New().SetTimeout(cfg.HTTPTimeout),
		cfg:      cfg,
		statuses: make(chan domain.TransportStatus, 16),
		done:     make(chan struct{}),
	}

	t.wg.Add(1)
	go t.reportProgress()

	return t, nil
}

func (t *Transport) initSpeaker() error {
	if t.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	t.initialized = true
	return nil
}

// Load fetches and decodes uri, then starts playing it.
func (t *Transport) Load(ctx context.Context, uri string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return domain.ErrTransportClosed
	}
	t.stopLocked()
	t.mu.Unlock()

	data, err := readSource(ctx, t.client, uri)
	if err != nil {
		return domain.NewTransportError("load", uri, err)
	}
	if err := checkFormat(data); err != nil {
		return domain.NewTransportError("load", uri, err)
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return domain.NewTransportError("load", uri, fmt.Errorf("%w: %v", domain.ErrUnsupportedFormat, err))
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = streamer.Close()
		return domain.ErrTransportClosed
	}
	if err := t.initSpeaker(); err != nil {
		t.mu.Unlock()
		_ = streamer.Close()
		return domain.NewTransportError("load", uri, err)
	}

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.uri = uri
	t.streamer = streamer
	t.format = format
	t.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, sampleRate, streamer)}
	duration := format.SampleRate.D(streamer.Len())
	ctrl := t.ctrl
	t.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		// runs on the speaker goroutine with the speaker locked
		go t.finished(gen)
	})))

	t.logger.Debug("transport loaded", slog.String("uri", uri), slog.Duration("duration", duration))
	t.emit(domain.TransportStatus{URI: uri, IsLoaded: true, DurationMillis: duration.Milliseconds()}, true)
	return nil
}

func (t *Transport) stopLocked() {
	if t.ctrl != nil {
		speaker.Lock()
		t.ctrl.Paused = true
		t.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if t.streamer != nil {
		_ = t.streamer.Close()
	}
	t.ctrl = nil
	t.streamer = nil
	t.uri = ""
}

func (t *Transport) finished(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.streamer == nil {
		t.mu.Unlock()
		return
	}
	uri := t.uri
	duration := t.format.SampleRate.D(t.streamer.Len())
	t.mu.Unlock()

	t.emit(domain.TransportStatus{
		URI:            uri,
		IsLoaded:       true,
		PositionMillis: duration.Milliseconds(),
		DurationMillis: duration.Milliseconds(),
		DidJustFinish:  true,
	}, true)
}

func (t *Transport) setPaused(op string, paused bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return domain.ErrTransportClosed
	}
	if t.ctrl == nil {
		return domain.ErrNotLoaded
	}

	speaker.Lock()
	t.ctrl.Paused = paused
	speaker.Unlock()

	t.logger.Debug("transport "+op, slog.String("uri", t.uri))
	return nil
}

// Pause pauses playback.
func (t *Transport) Pause(_ context.Context) error {
	return t.setPaused("paused", true)
}

// Resume resumes playback.
func (t *Transport) Resume(_ context.Context) error {
	return t.setPaused("resumed", false)
}

// Seek moves the playback position.
func (t *Transport) Seek(_ context.Context, position time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return domain.ErrTransportClosed
	}
	if t.streamer == nil {
		return domain.ErrNotLoaded
	}

	samples := t.format.SampleRate.N(position)
	if samples < 0 || samples > t.streamer.Len() {
		return domain.ErrInvalidPosition
	}

	speaker.Lock()
	defer speaker.Unlock()
	if err := t.streamer.Seek(samples); err != nil {
		return domain.NewTransportError("seek", t.uri, err)
	}
	return nil
}

// LoadedURI returns the loaded URI.
func (t *Transport) LoadedURI() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uri
}

// Statuses returns the status stream.
func (t *Transport) Statuses() <-chan domain.TransportStatus {
	return t.statuses
}

func (t *Transport) reportProgress() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			if status, ok := t.snapshot(); ok {
				t.emit(status, false)
			}
		}
	}
}

func (t *Transport) snapshot() (domain.TransportStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.streamer == nil || t.ctrl == nil {
		return domain.TransportStatus{}, false
	}

	speaker.Lock()
	paused := t.ctrl.Paused
	position := t.streamer.Position()
	length := t.streamer.Len()
	speaker.Unlock()

	if paused {
		return domain.TransportStatus{}, false
	}
	return domain.TransportStatus{
		URI:            t.uri,
		IsLoaded:       true,
		PositionMillis: t.format.SampleRate.D(position).Milliseconds(),
		DurationMillis: t.format.SampleRate.D(length).Milliseconds(),
	}, true
}

// emit delivers status. Progress ticks are dropped when the consumer lags;
// load and finish events wait for it.
func (t *Transport) emit(status domain.TransportStatus, wait bool) {
	t.sendMu.RLock()
	defer t.sendMu.RUnlock()

	select {
	case <-t.done:
		return
	default:
	}

	if !wait {
		select {
		case t.statuses <- status:
		default:
		}
		return
	}
	select {
	case t.statuses <- status:
	case <-t.done:
	}
}

// Close stops playback and the progress reporter and closes the status stream.
func (t *Transport) Close() error {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.stopLocked()
		t.mu.Unlock()

		close(t.done)
		t.wg.Wait()

		t.sendMu.Lock()
		close(t.statuses)
		t.sendMu.Unlock()

		if t.initialized {
			speaker.Clear()
		}
	})
	return nil
}

var _ ports.AudioTransport = (*Transport)(nil)
