// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services and adapters can return.
var (
	// ErrNoCurrentSong is returned when a playback command needs a current song.
	ErrNoCurrentSong = errors.New("no current song")

	// ErrInvalidPosition is returned when seeking outside [0, 1].
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrInvalidIndex is returned when a list index is out of bounds.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrSuperseded is returned by a transport load that lost to a newer load.
	ErrSuperseded = errors.New("load superseded by a newer request")

	// ErrNotLoaded is returned by transport operations when nothing is loaded.
	ErrNotLoaded = errors.New("no media loaded")

	// ErrAudioUnavailable is returned when the build has no audio output.
	ErrAudioUnavailable = errors.New("audio output unavailable")

	// ErrUnsupportedFormat is returned when the transport cannot decode a resource.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrTransportClosed is returned after the transport has been closed.
	ErrTransportClosed = errors.New("transport closed")

	// ErrCatalogUnavailable is returned when the catalog responds with an error status.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrSongNotFound is returned when a catalog lookup has no match.
	ErrSongNotFound = errors.New("song not found")
)

// Human-readable download failure messages shown inline by the UI.
const (
	DownloadErrNoAudioURL         = "No audio URL"
	DownloadErrStorageUnavailable = "Storage unavailable"
	DownloadErrGeneric            = "Download failed"
)

// TransportError represents an error from the audio transport.
// This wraps low-level audio library errors with additional context.
type TransportError struct {
	Op  string // Operation that failed (e.g., "load", "seek")
	URI string // Resource (if applicable)
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("audio transport %s failed for '%s': %v", e.Op, e.URI, e.Err)
	}
	return fmt.Sprintf("audio transport %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(op, uri string, err error) *TransportError {
	return &TransportError{Op: op, URI: uri, Err: err}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "save", "load")
	Type    string // Repository type (e.g., "session", "downloads")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// CatalogError represents a failed catalog request.
type CatalogError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s failed with status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog %s failed: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "SessionService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
