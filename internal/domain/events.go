// Package domain defines events for the event-driven architecture.
// Events make the session observable without the session knowing its observers.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventSongStarted         EventType = "playback.song_started"
	EventPlaybackPaused      EventType = "playback.paused"
	EventPlaybackResumed     EventType = "playback.resumed"
	EventProgress            EventType = "playback.progress"
	EventPlaybackUnavailable EventType = "playback.unavailable"
	EventPlaybackFinished    EventType = "playback.finished"

	// Session list events
	EventSongsChanged          EventType = "session.songs_changed"
	EventQueueChanged          EventType = "session.queue_changed"
	EventShuffleToggled        EventType = "session.shuffle_toggled"
	EventRecentlyPlayedChanged EventType = "session.recently_played_changed"

	// Offline events
	EventDownloadStarted     EventType = "download.started"
	EventDownloadCompleted   EventType = "download.completed"
	EventDownloadFailed      EventType = "download.failed"
	EventDownloadRemoved     EventType = "download.removed"
	EventDownloadsReconciled EventType = "download.reconciled"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// SongStartedEvent is published when a song has been loaded and committed as current.
type SongStartedEvent struct {
	baseEvent
	Song  Song
	Index int
	URI   string
	Local bool // true when playing from an offline copy
}

// Type returns the event type.
func (e SongStartedEvent) Type() EventType {
	return EventSongStarted
}

// NewSongStartedEvent creates a new SongStartedEvent.
func NewSongStartedEvent(song Song, index int, uri string, local bool) SongStartedEvent {
	return SongStartedEvent{
		baseEvent: newBaseEvent(),
		Song:      song,
		Index:     index,
		URI:       uri,
		Local:     local,
	}
}

// PlaybackPausedEvent is published when playback is paused.
type PlaybackPausedEvent struct {
	baseEvent
	Song           Song
	PositionMillis int64
}

// Type returns the event type.
func (e PlaybackPausedEvent) Type() EventType {
	return EventPlaybackPaused
}

// NewPlaybackPausedEvent creates a new PlaybackPausedEvent.
func NewPlaybackPausedEvent(song Song, positionMillis int64) PlaybackPausedEvent {
	return PlaybackPausedEvent{
		baseEvent:      newBaseEvent(),
		Song:           song,
		PositionMillis: positionMillis,
	}
}

// PlaybackResumedEvent is published when paused playback continues.
type PlaybackResumedEvent struct {
	baseEvent
	Song     Song
	Reloaded bool // true when the transport had to load the song again
}

// Type returns the event type.
func (e PlaybackResumedEvent) Type() EventType {
	return EventPlaybackResumed
}

// NewPlaybackResumedEvent creates a new PlaybackResumedEvent.
func NewPlaybackResumedEvent(song Song, reloaded bool) PlaybackResumedEvent {
	return PlaybackResumedEvent{
		baseEvent: newBaseEvent(),
		Song:      song,
		Reloaded:  reloaded,
	}
}

// ProgressEvent is published when the transport reports a new position.
type ProgressEvent struct {
	baseEvent
	PositionMillis int64
	DurationMillis int64
}

// Type returns the event type.
func (e ProgressEvent) Type() EventType {
	return EventProgress
}

// NewProgressEvent creates a new ProgressEvent.
func NewProgressEvent(positionMillis, durationMillis int64) ProgressEvent {
	return ProgressEvent{
		baseEvent:      newBaseEvent(),
		PositionMillis: positionMillis,
		DurationMillis: durationMillis,
	}
}

// PlaybackUnavailableEvent is published when a song cannot be resolved to a playable URI.
// The command itself returns no error; this event lets a UI explain why nothing happened.
type PlaybackUnavailableEvent struct {
	baseEvent
	Song Song
}

// Type returns the event type.
func (e PlaybackUnavailableEvent) Type() EventType {
	return EventPlaybackUnavailable
}

// NewPlaybackUnavailableEvent creates a new PlaybackUnavailableEvent.
func NewPlaybackUnavailableEvent(song Song) PlaybackUnavailableEvent {
	return PlaybackUnavailableEvent{
		baseEvent: newBaseEvent(),
		Song:      song,
	}
}

// PlaybackFinishedEvent is published when the current song plays to its end.
type PlaybackFinishedEvent struct {
	baseEvent
	Song Song
	Next bool // true when another song follows automatically
}

// Type returns the event type.
func (e PlaybackFinishedEvent) Type() EventType {
	return EventPlaybackFinished
}

// NewPlaybackFinishedEvent creates a new PlaybackFinishedEvent.
func NewPlaybackFinishedEvent(song Song, next bool) PlaybackFinishedEvent {
	return PlaybackFinishedEvent{
		baseEvent: newBaseEvent(),
		Song:      song,
		Next:      next,
	}
}

// SongsChangedEvent is published when the browsing list is replaced or extended.
type SongsChangedEvent struct {
	baseEvent
	Query string
	Page  int
	Count int
	Total int
}

// Type returns the event type.
func (e SongsChangedEvent) Type() EventType {
	return EventSongsChanged
}

// NewSongsChangedEvent creates a new SongsChangedEvent.
func NewSongsChangedEvent(query string, page, count, total int) SongsChangedEvent {
	return SongsChangedEvent{
		baseEvent: newBaseEvent(),
		Query:     query,
		Page:      page,
		Count:     count,
		Total:     total,
	}
}

// QueueChangedEvent is published after every queue mutation.
type QueueChangedEvent struct {
	baseEvent
	Queue []Song
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType {
	return EventQueueChanged
}

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(queue []Song) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent: newBaseEvent(),
		Queue:     queue,
	}
}

// ShuffleToggledEvent is published when shuffle mode changes.
type ShuffleToggledEvent struct {
	baseEvent
	Enabled bool
}

// Type returns the event type.
func (e ShuffleToggledEvent) Type() EventType {
	return EventShuffleToggled
}

// NewShuffleToggledEvent creates a new ShuffleToggledEvent.
func NewShuffleToggledEvent(enabled bool) ShuffleToggledEvent {
	return ShuffleToggledEvent{
		baseEvent: newBaseEvent(),
		Enabled:   enabled,
	}
}

// RecentlyPlayedChangedEvent is published when the history list changes.
type RecentlyPlayedChangedEvent struct {
	baseEvent
	Songs []Song
}

// Type returns the event type.
func (e RecentlyPlayedChangedEvent) Type() EventType {
	return EventRecentlyPlayedChanged
}

// NewRecentlyPlayedChangedEvent creates a new RecentlyPlayedChangedEvent.
func NewRecentlyPlayedChangedEvent(songs []Song) RecentlyPlayedChangedEvent {
	return RecentlyPlayedChangedEvent{
		baseEvent: newBaseEvent(),
		Songs:     songs,
	}
}

// DownloadStartedEvent is published when a song download begins.
type DownloadStartedEvent struct {
	baseEvent
	SongID string
}

// Type returns the event type.
func (e DownloadStartedEvent) Type() EventType {
	return EventDownloadStarted
}

// NewDownloadStartedEvent creates a new DownloadStartedEvent.
func NewDownloadStartedEvent(songID string) DownloadStartedEvent {
	return DownloadStartedEvent{baseEvent: newBaseEvent(), SongID: songID}
}

// DownloadCompletedEvent is published when a song's audio is stored locally.
type DownloadCompletedEvent struct {
	baseEvent
	Entry DownloadEntry
}

// Type returns the event type.
func (e DownloadCompletedEvent) Type() EventType {
	return EventDownloadCompleted
}

// NewDownloadCompletedEvent creates a new DownloadCompletedEvent.
func NewDownloadCompletedEvent(entry DownloadEntry) DownloadCompletedEvent {
	return DownloadCompletedEvent{baseEvent: newBaseEvent(), Entry: entry}
}

// DownloadFailedEvent is published when a download attempt fails.
type DownloadFailedEvent struct {
	baseEvent
	SongID  string
	Message string
}

// Type returns the event type.
func (e DownloadFailedEvent) Type() EventType {
	return EventDownloadFailed
}

// NewDownloadFailedEvent creates a new DownloadFailedEvent.
func NewDownloadFailedEvent(songID, message string) DownloadFailedEvent {
	return DownloadFailedEvent{baseEvent: newBaseEvent(), SongID: songID, Message: message}
}

// DownloadRemovedEvent is published when an offline entry is dropped.
type DownloadRemovedEvent struct {
	baseEvent
	SongID string
	Reason string // "user" or "missing-file"
}

// Type returns the event type.
func (e DownloadRemovedEvent) Type() EventType {
	return EventDownloadRemoved
}

// NewDownloadRemovedEvent creates a new DownloadRemovedEvent.
func NewDownloadRemovedEvent(songID, reason string) DownloadRemovedEvent {
	return DownloadRemovedEvent{baseEvent: newBaseEvent(), SongID: songID, Reason: reason}
}

// DownloadsReconciledEvent is published after startup reconciliation.
type DownloadsReconciledEvent struct {
	baseEvent
	Kept    int
	Dropped int
}

// Type returns the event type.
func (e DownloadsReconciledEvent) Type() EventType {
	return EventDownloadsReconciled
}

// NewDownloadsReconciledEvent creates a new DownloadsReconciledEvent.
func NewDownloadsReconciledEvent(kept, dropped int) DownloadsReconciledEvent {
	return DownloadsReconciledEvent{baseEvent: newBaseEvent(), Kept: kept, Dropped: dropped}
}
