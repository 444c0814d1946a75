// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// AudioTransport is the low-level playback primitive.
// It holds at most one loaded media resource at a time.
//
// Implementations must be thread-safe as they may be called from multiple goroutines.
type AudioTransport interface {
	// Load unloads any previous resource, loads uri and starts playing it.
	// uri is either a local file path or an http(s) URL.
	Load(ctx context.Context, uri string) error

	// Pause pauses the loaded resource, keeping its position.
	// Returns domain.ErrNotLoaded if nothing is loaded.
	Pause(ctx context.Context) error

	// Resume continues the loaded resource from its current position.
	// Returns domain.ErrNotLoaded if nothing is loaded.
	Resume(ctx context.Context) error

	// Seek moves the playback position of the loaded resource.
	Seek(ctx context.Context, position time.Duration) error

	// LoadedURI returns the URI of the loaded resource, or "" if none.
	LoadedURI() string

	// Statuses is the status event stream. It has a single consumer
	// and is closed by Close.
	Statuses() <-chan domain.TransportStatus

	// Close unloads everything and releases the output device.
	Close() error
}

// LoadTicket is a reserved slot in a sequenced transport's load order.
type LoadTicket interface {
	// Load performs the reserved load. It returns domain.ErrSuperseded without
	// touching the transport if a newer ticket was reserved meanwhile.
	Load(ctx context.Context, uri string) error
}

// SequencedTransport is an AudioTransport whose loads are serialized so the
// most recently reserved load always wins.
type SequencedTransport interface {
	AudioTransport

	// Reserve takes the next position in load order. Reservation order, not
	// the order in which Load is later called, decides which load wins.
	Reserve() LoadTicket
}

// Notifier reflects the now-playing song into a system notification.
// Calls are fire-and-forget from the caller's point of view; errors are only logged.
type Notifier interface {
	Show(title, subtitle string) error
	Clear() error
}
