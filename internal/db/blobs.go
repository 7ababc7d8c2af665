package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/RichardoC/arohi/internal/models"
	"go.uber.org/zap"
)

// KV is the persistence surface the chat store writes through.
type KV interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, blob []byte) error
	Remove(key string) error
}

// LoadSessions reads the session collection. Missing, unreadable or
// malformed blobs are logged and reported as absent.
func LoadSessions(kv KV, logger *zap.Logger) ([]models.ChatSession, bool) {
	raw, ok := loadRaw(kv, SessionsKey, logger)
	if !ok {
		return nil, false
	}

	var sessions []models.ChatSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		logger.Error("Failed to parse chats", zap.Error(err))
		return nil, false
	}
	if sessions == nil {
		return nil, false
	}
	kept := sessions[:0]
	for _, session := range sessions {
		if session.ID == "" {
			logger.Warn("Skipping stored chat without an id", zap.String("title", session.Title))
			continue
		}
		if session.Messages == nil {
			session.Messages = []models.Message{}
		}
		kept = append(kept, session)
	}
	return kept, true
}

func SaveSessions(kv KV, sessions []models.ChatSession) error {
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode chats: %w", err)
	}
	return kv.Save(SessionsKey, data)
}

// LoadSettings reads the settings blob on top of the defaults.
func LoadSettings(kv KV, logger *zap.Logger) (models.Settings, bool) {
	raw, ok := loadRaw(kv, SettingsKey, logger)
	if !ok {
		return models.DefaultSettings(), false
	}

	// Settings is an object; arrays, strings and numbers are rejected by
	// Unmarshal, a bare null is not.
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return models.DefaultSettings(), false
	}

	settings := models.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		logger.Error("Failed to parse settings", zap.Error(err))
		return models.DefaultSettings(), false
	}
	return settings.Normalize(), true
}

func SaveSettings(kv KV, settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return kv.Save(SettingsKey, data)
}

func loadRaw(kv KV, key string, logger *zap.Logger) ([]byte, bool) {
	raw, ok, err := kv.Load(key)
	if err != nil {
		logger.Error("Failed to read persisted state", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return raw, ok
}

// MemoryKV keeps blobs in process memory. It backs one-shot commands and
// tests that do not need a database file.
type MemoryKV struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{blobs: make(map[string][]byte)}
}

func (m *MemoryKV) Load(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(blob), true, nil
}

func (m *MemoryKV) Save(key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = bytes.Clone(blob)
	return nil
}

func (m *MemoryKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
