// Package beep plays songs through the system audio device using gopxl/beep.
//
// Only MP3 payloads can be decoded. Catalog streams that arrive in another
// container (the catalog mostly serves AAC in MP4) fail to load with
// domain.ErrUnsupportedFormat; use the mock transport for those sessions.
package beep

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-resty/resty/v2"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// Config tunes the transport.
type Config struct {
	// HTTPTimeout bounds fetching a remote stream
	HTTPTimeout time.Duration

	// ProgressInterval is how often position updates are emitted while playing
	ProgressInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:      30 * time.Second,
		ProgressInterval: 500 * time.Millisecond,
	}
}

func isRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// readSource returns the complete payload behind uri. Songs are small enough
// to hold in memory, which keeps the decoder seekable.
func readSource(ctx context.Context, client *resty.Client, uri string) ([]byte, error) {
	if !isRemote(uri) {
		data, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	resp, err := client.R().SetContext(ctx).Get(uri)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// checkFormat rejects payloads whose container is identifiable and not MP3.
// Unidentifiable data (untagged MP3 frames) is left to the decoder.
func checkFormat(data []byte) error {
	format, fileType, err := tag.Identify(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if fileType != tag.MP3 {
		return fmt.Errorf("%w: %s %s", domain.ErrUnsupportedFormat, format, fileType)
	}
	return nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
