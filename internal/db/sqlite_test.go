package db

import (
	"path/filepath"
	"testing"

	"github.com/RichardoC/arohi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "arohi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestLoadMissingKey(t *testing.T) {
	database := newTestDatabase(t)

	blob, ok, err := database.Load("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, blob)
}

func TestSaveOverwriteRemove(t *testing.T) {
	database := newTestDatabase(t)

	require.NoError(t, database.Save("k", []byte("one")))
	require.NoError(t, database.Save("k", []byte("two")))

	blob, ok, err := database.Load("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(blob))

	require.NoError(t, database.Remove("k"))
	require.NoError(t, database.Remove("k"))
	_, ok, err = database.Load("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionsRoundTrip(t *testing.T) {
	stores := map[string]KV{
		"sqlite": newTestDatabase(t),
		"memory": NewMemoryKV(),
	}
	sessions := []models.ChatSession{
		{
			ID:    "b",
			Title: "Hi",
			Messages: []models.Message{
				{ID: "m1", Text: "Hi", Sender: models.SenderUser, Timestamp: 10},
				{ID: "m2", Text: "Hello there!", Sender: models.SenderBot, Timestamp: 11},
			},
			CreatedAt: 5,
			UpdatedAt: 11,
		},
		{ID: "a", Title: models.DefaultTitle, Messages: []models.Message{}, CreatedAt: 1, UpdatedAt: 1},
	}

	for name, kv := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, SaveSessions(kv, sessions))
			loaded, ok := LoadSessions(kv, zap.NewNop())
			require.True(t, ok)
			assert.Equal(t, sessions, loaded)
		})
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	database := newTestDatabase(t)
	settings := models.Settings{MemoryEnabled: false, Theme: models.ThemeLight}

	require.NoError(t, SaveSettings(database, settings))
	loaded, ok := LoadSettings(database, zap.NewNop())
	require.True(t, ok)
	assert.Equal(t, settings, loaded)
}

func TestMalformedBlobsFallBackToDefaults(t *testing.T) {
	database := newTestDatabase(t)
	require.NoError(t, database.Save(SessionsKey, []byte("{not json")))
	require.NoError(t, database.Save(SettingsKey, []byte(`["dark"]`)))

	sessions, ok := LoadSessions(database, zap.NewNop())
	assert.False(t, ok)
	assert.Empty(t, sessions)

	settings, ok := LoadSettings(database, zap.NewNop())
	assert.False(t, ok)
	assert.Equal(t, models.DefaultSettings(), settings)
}

func TestStructurallyCompatibleBlobs(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Save(SessionsKey, []byte(`[{"id":"x","title":"t","extra":1}]`)))
	require.NoError(t, kv.Save(SettingsKey, []byte(`{"theme":"light"}`)))

	sessions, ok := LoadSessions(kv, zap.NewNop())
	require.True(t, ok)
	require.Len(t, sessions, 1)
	assert.Equal(t, "x", sessions[0].ID)
	assert.NotNil(t, sessions[0].Messages)

	settings, ok := LoadSettings(kv, zap.NewNop())
	require.True(t, ok)
	assert.True(t, settings.MemoryEnabled)
	assert.Equal(t, models.ThemeLight, settings.Theme)
}

func TestSessionsWithoutIDAreSkipped(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Save(SessionsKey, []byte(`[null,{"id":"x","title":"kept"},{"title":"no id"},{"id":""}]`)))

	sessions, ok := LoadSessions(kv, zap.NewNop())
	require.True(t, ok)
	require.Len(t, sessions, 1)
	assert.Equal(t, "x", sessions[0].ID)
	assert.Equal(t, "kept", sessions[0].Title)

	require.NoError(t, kv.Save(SessionsKey, []byte(`[null]`)))
	sessions, ok = LoadSessions(kv, zap.NewNop())
	require.True(t, ok)
	assert.Empty(t, sessions)
}
