//go:build !((linux && cgo) || windows || darwin)

package beep

import (
	"context"
	"log/slog"
	"time"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// Available reports whether this build can drive an audio device.
// Audio output needs cgo on linux.
const Available = false

// Transport is a stand-in for builds without audio output. It cannot be constructed.
type Transport struct{}

// NewTransport always fails with domain.ErrAudioUnavailable.
func NewTransport(_ Config, _ *slog.Logger) (*Transport, error) {
	return nil, domain.ErrAudioUnavailable
}

func (*Transport) Load(context.Context, string) error        { return domain.ErrAudioUnavailable }
func (*Transport) Pause(context.Context) error               { return domain.ErrAudioUnavailable }
func (*Transport) Resume(context.Context) error              { return domain.ErrAudioUnavailable }
func (*Transport) Seek(context.Context, time.Duration) error { return domain.ErrAudioUnavailable }
func (*Transport) LoadedURI() string                         { return "" }
func (*Transport) Statuses() <-chan domain.TransportStatus   { return nil }
func (*Transport) Close() error                              { return nil }

var _ ports.AudioTransport = (*Transport)(nil)
