package models

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "model"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

const (
	DefaultTitle  = "New Conversation"
	TitleMaxRunes = 30
)

type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    Sender `json:"sender"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

type Settings struct {
	MemoryEnabled bool  `json:"memoryEnabled"`
	Theme         Theme `json:"theme"`
}

func DefaultSettings() Settings {
	return Settings{MemoryEnabled: true, Theme: ThemeDark}
}

// Normalize maps unknown themes to dark.
func (s Settings) Normalize() Settings {
	if s.Theme != ThemeLight {
		s.Theme = ThemeDark
	}
	return s
}

// Clone returns a copy that shares no message storage with s.
func (c ChatSession) Clone() ChatSession {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// DeriveTitle builds a session title from the first user message.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleMaxRunes {
		return text
	}
	return string(runes[:TitleMaxRunes]) + "…"
}

func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
