// Package ports declares the interfaces the services depend on and the adapters implement.
package ports

import (
	"github.com/tejashwikalptaru/tunestream/internal/domain"
)

// EventBus carries the session and download events to whoever renders them.
//
// SessionService publishes after every committed transition (song started, paused,
// finished, list or queue changed) and OfflineService after every download state change.
// Publishers never hold their own locks while publishing, so a handler may call back
// into the service that published the event.
//
// Implementations must be safe for concurrent use: auto-advance and downloads publish
// from their own goroutines.
//
//	id := bus.Subscribe(domain.EventSongStarted, func(e domain.Event) {
//	    started := e.(domain.SongStartedEvent)
//	    fmt.Println("now playing", started.Song.Name)
//	})
//	defer bus.Unsubscribe(id)
type EventBus interface {
	// Publish hands event to every handler subscribed to its type, then to
	// the catch-all handlers. Handlers should return quickly.
	Publish(event domain.Event)

	// Subscribe registers handler for one event type. Registering the same
	// handler twice delivers each event to it twice.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a handler. Unknown ids are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers handler for every event type; used for event logging.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether anything listens to eventType.
	HasSubscribers(eventType domain.EventType) bool

	// Close drops all subscriptions. Publishing afterwards is a no-op.
	Close() error
}

// EventFilter decides whether a subscriber sees an event.
type EventFilter func(event domain.Event) bool

// FilteringEventBus adds per-subscription filters, e.g. download failures of one song:
//
//	bus.SubscribeFiltered(domain.EventDownloadFailed, func(e domain.Event) bool {
//	    return e.(domain.DownloadFailedEvent).SongID == songID
//	}, showError)
type FilteringEventBus interface {
	EventBus

	SubscribeFiltered(eventType domain.EventType, filter EventFilter, handler domain.EventHandler) domain.SubscriptionID
}
