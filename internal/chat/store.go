// Package chat owns the conversation state of the client: the session
// collection, the current-session pointer, pending sends and settings.
//
// Views never hold their own copy of this state. They call Store methods and
// re-read snapshots (ListSessions, Current, Pending) whenever they render.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/RichardoC/arohi/internal/db"
	"github.com/RichardoC/arohi/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Replier turns user text plus prior history into the model's answer. It
// must not fail; errors are its own concern.
type Replier interface {
	Reply(ctx context.Context, text string, history []models.Message, memoryEnabled bool) string
}

type Store struct {
	mu        sync.Mutex
	sessions  []models.ChatSession // newest created first
	currentID string
	settings  models.Settings
	pending   map[string]int

	replier Replier
	kv      db.KV
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	inflight sync.WaitGroup
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New builds a store and restores any sessions and settings persisted in kv.
func New(kv db.KV, replier Replier, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		pending: make(map[string]int),
		replier: replier,
		kv:      kv,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if sessions, ok := db.LoadSessions(kv, logger); ok {
		s.sessions = sessions
	}
	s.settings, _ = db.LoadSettings(kv, logger)

	logger.Debug("Restored chat state",
		zap.Int("sessions", len(s.sessions)),
		zap.Bool("memoryEnabled", s.settings.MemoryEnabled))
	return s
}

// CreateSession prepends an empty session, makes it current and returns its id.
func (s *Store) CreateSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := models.EpochMillis(s.now())
	session := models.ChatSession{
		ID:        s.newID(),
		Title:     models.DefaultTitle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions = append([]models.ChatSession{session}, s.sessions...)
	s.currentID = session.ID
	s.persistSessionsLocked()
	return session.ID
}

// SelectSession points the store at id. Unknown ids are accepted; lookups
// through Current then report no session.
func (s *Store) SelectSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentID = id
}

// StartChat resumes the most recent session, creating one when none exist.
func (s *Store) StartChat() string {
	s.mu.Lock()
	if len(s.sessions) > 0 {
		s.currentID = s.sessions[0].ID
		id := s.currentID
		s.mu.Unlock()
		return id
	}
	s.mu.Unlock()
	return s.CreateSession()
}

func (s *Store) ListSessions() []models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ChatSession, len(s.sessions))
	for i, session := range s.sessions {
		out[i] = session.Clone()
	}
	return out
}

func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

func (s *Store) Current() (models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(s.currentID)
}

func (s *Store) Session(id string) (models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(id)
}

// ClearAll drops every session and erases the persisted collection.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.currentID = ""
	if err := s.kv.Remove(db.SessionsKey); err != nil {
		s.logger.Error("Failed to erase chats", zap.Error(err))
	}
}

func (s *Store) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// ToggleMemory flips conversation memory and returns the new value.
func (s *Store) ToggleMemory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.MemoryEnabled = !s.settings.MemoryEnabled
	s.persistSettingsLocked()
	return s.settings.MemoryEnabled
}

func (s *Store) SetMemory(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.MemoryEnabled = enabled
	s.persistSettingsLocked()
}

func (s *Store) SetTheme(theme models.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = models.Settings{MemoryEnabled: s.settings.MemoryEnabled, Theme: theme}.Normalize()
	s.persistSettingsLocked()
}

func (s *Store) lookupLocked(id string) (models.ChatSession, bool) {
	if i := s.indexLocked(id); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return models.ChatSession{}, false
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// touchLocked bumps updatedAt, keeping it strictly increasing even when the
// clock has not moved.
func (s *Store) touchLocked(session *models.ChatSession) {
	now := models.EpochMillis(s.now())
	if now <= session.UpdatedAt {
		now = session.UpdatedAt + 1
	}
	session.UpdatedAt = now
}

func (s *Store) persistSessionsLocked() {
	if err := db.SaveSessions(s.kv, s.sessions); err != nil {
		s.logger.Error("Failed to save chats", zap.Error(err))
	}
}

func (s *Store) persistSettingsLocked() {
	if err := db.SaveSettings(s.kv, s.settings); err != nil {
		s.logger.Error("Failed to save settings", zap.Error(err))
	}
}
