package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kaimana/seachat/pkg/engine"
	"github.com/kaimana/seachat/pkg/store"
)

// Factory constructs a fresh execution context for a session id.
type Factory func(sessionID string) (engine.Engine, error)

// Handle is a registry entry: the execution context plus the per-session
// turn guard. The registry owns the handle's lifetime; at most one handle
// exists per session id.
type Handle struct {
	ID     string
	Engine engine.Engine

	turnMu sync.Mutex
	closed bool
}

// TryBeginTurn attempts to claim the session for one chat turn. It
// returns false when another turn is already in flight, or when the
// session was destroyed after the handle was resolved; the execution
// context is a single-writer resource.
func (h *Handle) TryBeginTurn() bool {
	if !h.turnMu.TryLock() {
		return false
	}
	if h.closed {
		h.turnMu.Unlock()
		return false
	}
	return true
}

// EndTurn releases the turn claim
func (h *Handle) EndTurn() {
	h.turnMu.Unlock()
}

type entry struct {
	once   sync.Once
	handle *Handle
	err    error
}

// Registry maps session ids to live execution contexts
type Registry struct {
	factory   Factory
	store     store.Store
	staticDir string

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry
func NewRegistry(factory Factory, st store.Store, staticDir string) *Registry {
	return &Registry{
		factory:   factory,
		store:     st,
		staticDir: staticDir,
		entries:   make(map[string]*entry),
	}
}

// ValidateID checks that a client-supplied session id is safe to use as
// a path segment and a store key. Only alphanumerics, dash, and
// underscore are accepted, which rules out ".", "..", separators, and
// control characters outright.
func ValidateID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if len(sessionID) > 128 {
		return fmt.Errorf("session id too long")
	}
	for _, r := range sessionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("session id contains invalid character %q", r)
		}
	}
	return nil
}

// Dir returns the session's on-disk directory under the static root
func (r *Registry) Dir(sessionID string) string {
	return filepath.Join(r.staticDir, sessionID)
}

// UploadDir returns the session's upload directory
func (r *Registry) UploadDir(sessionID string) string {
	return filepath.Join(r.staticDir, sessionID, "uploads")
}

// containedDir resolves the session directory and verifies it is a
// strict descendant of the static root. ValidateID already forbids ids
// that could escape; this guards the filesystem mutation path even if
// a caller skips validation.
func (r *Registry) containedDir(sessionID string) (string, error) {
	root, err := filepath.Abs(r.staticDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve static root: %w", err)
	}
	dir := filepath.Join(root, sessionID)
	if dir == root || !strings.HasPrefix(dir, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("session directory escapes static root")
	}
	return dir, nil
}

// Resolve returns the session's execution context, constructing and
// registering a new one on first use. Concurrent first requests for the
// same id construct exactly one context. A partially constructed context
// is never registered.
func (r *Registry) Resolve(ctx context.Context, sessionID string) (*Handle, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{}
		r.entries[sessionID] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		eng, err := r.factory(sessionID)
		if err != nil {
			e.err = fmt.Errorf("failed to create execution context: %w", err)
			return
		}

		// Seed the durable last-active timestamp so the reaper does not
		// treat the brand-new session as an orphan.
		if err := r.store.SetLastActive(ctx, sessionID, time.Now()); err != nil {
			eng.Reset()
			e.err = fmt.Errorf("failed to seed last-active timestamp: %w", err)
			return
		}

		e.handle = &Handle{ID: sessionID, Engine: eng}
		log.Info().Str("session_id", sessionID).Msg("Created new execution context")
	})

	if e.err != nil {
		// Drop the failed entry so a later request can retry construction.
		r.mu.Lock()
		if r.entries[sessionID] == e {
			delete(r.entries, sessionID)
		}
		r.mu.Unlock()
		return nil, e.err
	}

	return e.handle, nil
}

// Has reports whether the session is currently live in this process
func (r *Registry) Has(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	return ok && e.handle != nil
}

// Snapshot returns a point-in-time copy of the live session ids
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		if e.handle != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Destroy tears down the session: it waits out any in-flight turn,
// releases the execution context, and removes the durable keys and the
// on-disk directory. Each step is best-effort; a failure is logged and
// the remaining steps still run. Destroying an unknown session still
// clears its durable and on-disk state, which makes Destroy idempotent.
func (r *Registry) Destroy(ctx context.Context, sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}

	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if ok {
		delete(r.entries, sessionID)
	}
	r.mu.Unlock()

	var firstErr error

	if ok && e.handle != nil {
		// Exclusive with in-flight turns: the turn guard is held for the
		// whole streamed turn, so this blocks until it finishes. Marking
		// the handle closed under the same lock stops a caller that
		// resolved the handle earlier from starting a turn on the reset
		// context.
		e.handle.turnMu.Lock()
		e.handle.Engine.Reset()
		e.handle.closed = true
		e.handle.turnMu.Unlock()
	}

	if err := r.store.DeleteSession(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to delete durable session keys")
		firstErr = err
	}

	if dir, err := r.containedDir(sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Refusing to remove session directory")
		if firstErr == nil {
			firstErr = err
		}
	} else if err := os.RemoveAll(dir); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to remove session directory")
		if firstErr == nil {
			firstErr = err
		}
	}

	log.Info().Str("session_id", sessionID).Msg("Session destroyed")
	return firstErr
}
