// Package store persists session state that must survive the process:
// last-active timestamps and serialized chat transcripts. The backing
// store is shared with other processes, so key layout is part of the
// contract: "last_active:{session_id}" holds a unix timestamp encoded
// as a string, "messages:{session_id}" holds the transcript blob.
package store

import (
	"context"
	"time"
)

const (
	// LastActivePrefix keys the unix last-active timestamp per session.
	LastActivePrefix = "last_active:"

	// MessagesPrefix keys the serialized transcript per session.
	MessagesPrefix = "messages:"
)

// Store is the durable session state store
type Store interface {
	// SetLastActive records the session's last activity time.
	SetLastActive(ctx context.Context, sessionID string, t time.Time) error

	// LastActive returns the session's last activity time. The second
	// return value is false when no timestamp is recorded.
	LastActive(ctx context.Context, sessionID string) (time.Time, bool, error)

	// SetTranscript replaces the session's serialized transcript.
	SetTranscript(ctx context.Context, sessionID string, data []byte) error

	// Transcript returns the session's serialized transcript. The second
	// return value is false when no transcript is recorded.
	Transcript(ctx context.Context, sessionID string) ([]byte, bool, error)

	// DeleteSession removes all durable keys for the session.
	DeleteSession(ctx context.Context, sessionID string) error
}
