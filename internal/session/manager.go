// Package session establishes, validates, and repairs the (user, thread)
// identity pair across client restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cvscreener/cvchat/internal/api"
	"github.com/cvscreener/cvchat/internal/models"
)

// ErrNoSession indicates that no usable identity is stored; the caller must
// establish one with a user name.
var ErrNoSession = errors.New("no stored session")

const errLoggerKey = "err"

// Backend captures the API surface the manager consumes.
type Backend interface {
	CreateUser(ctx context.Context, name string) (api.User, error)
	CreateThread(ctx context.Context, userID int64) (string, error)
	GetThread(ctx context.Context, threadID string) (models.Thread, error)
}

// Manager owns the persisted session identity.
type Manager struct {
	backend Backend
	store   Store
	logger  *slog.Logger
}

// NewManager creates a manager over the given backend and store.
func NewManager(backend Backend, store Store, logger *slog.Logger) Manager {
	return Manager{
		backend: backend,
		store:   store,
		logger:  logger.With(slog.String("module", "session")),
	}
}

// Resume adopts the persisted identity. It validates that the referenced
// thread still exists; when the thread is gone, or the stored thread id is
// the literal string "undefined", a replacement thread is created for the
// same user and persisted silently. Returns ErrNoSession when nothing usable
// is stored.
func (m Manager) Resume(ctx context.Context) (models.Session, error) {
	s, ok, err := m.store.Load()
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok {
		return models.Session{}, ErrNoSession
	}

	// A past serialization bug could persist the literal string "undefined"
	// as the thread id; it must never reach a lookup.
	if s.ThreadID == "" || s.ThreadID == "undefined" {
		m.logger.Info("Stored session has no usable thread, creating one",
			slog.String("userID", s.UserID))
		return m.replaceThread(ctx, s)
	}

	if _, err := m.backend.GetThread(ctx, s.ThreadID); err != nil {
		if api.IsNotFound(err) {
			m.logger.Info("Stored thread no longer exists, creating a replacement",
				slog.String("threadID", s.ThreadID))
			return m.replaceThread(ctx, s)
		}
		return models.Session{}, fmt.Errorf("failed to validate thread: %w", err)
	}

	return s, nil
}

// Establish creates an identity for name and a fresh thread, then persists
// the pair. A conflict from the backend means the user already exists; its
// identity is adopted instead of failing.
func (m Manager) Establish(ctx context.Context, name string) (models.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Session{}, fmt.Errorf("user name is required")
	}

	user, err := m.backend.CreateUser(ctx, name)
	if err != nil {
		existing, ok := api.ExistingUser(err)
		if !ok {
			return models.Session{}, fmt.Errorf("failed to create user: %w", err)
		}
		m.logger.Info("User already exists, adopting identity",
			slog.Int64("userID", existing.ID))
		user = existing
		if user.Name == "" {
			user.Name = name
		}
	}

	threadID, err := m.backend.CreateThread(ctx, user.ID)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create thread: %w", err)
	}

	s := models.Session{
		UserID:   strconv.FormatInt(user.ID, 10),
		UserName: user.Name,
		ThreadID: threadID,
	}
	if err := m.store.Save(s); err != nil {
		return models.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}
	return s, nil
}

// Reset clears the persisted identity unconditionally, returning the caller
// to the unauthenticated state.
func (m Manager) Reset() error {
	return m.store.Clear()
}

// replaceThread creates a new thread for the session's user and persists the
// repaired session.
func (m Manager) replaceThread(ctx context.Context, s models.Session) (models.Session, error) {
	userID, err := strconv.ParseInt(s.UserID, 10, 64)
	if err != nil {
		// A user id we cannot parse is a corrupt record; drop it.
		m.logger.Warn("Stored user id is not numeric, clearing session",
			slog.String("userID", s.UserID),
			slog.String(errLoggerKey, err.Error()))
		if clearErr := m.store.Clear(); clearErr != nil {
			return models.Session{}, fmt.Errorf("failed to clear corrupt session: %w", clearErr)
		}
		return models.Session{}, ErrNoSession
	}

	threadID, err := m.backend.CreateThread(ctx, userID)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create replacement thread: %w", err)
	}

	s.ThreadID = threadID
	if err := m.store.Save(s); err != nil {
		return models.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}
	return s, nil
}
