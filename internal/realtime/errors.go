package realtime

import "errors"

// Failure taxonomy for coordinator operations. All of these are handled at
// the point of detection and surfaced to the originating connection as a
// single scoped error event; none reach other room members.
var (
	ErrStreamNotFound     = errors.New("stream not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrChatDisabled       = errors.New("chat is disabled")
	ErrValidation         = errors.New("validation failed")
	ErrPersistence        = errors.New("persistence failed")
	ErrTargetNotConnected = errors.New("target not connected")
)
