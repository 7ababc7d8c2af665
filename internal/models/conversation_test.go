package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Hi", DeriveTitle("Hi"))

	exact := strings.Repeat("a", 30)
	assert.Equal(t, exact, DeriveTitle(exact))

	long := "Tell me something nice about the weather today"
	assert.Equal(t, "Tell me something nice about t…", DeriveTitle(long))
}

func TestDeriveTitleCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 31)
	assert.Equal(t, strings.Repeat("é", 30)+"…", DeriveTitle(text))
}

func TestSettingsNormalize(t *testing.T) {
	assert.Equal(t, ThemeDark, Settings{Theme: "neon"}.Normalize().Theme)
	assert.Equal(t, ThemeLight, Settings{Theme: ThemeLight}.Normalize().Theme)
	assert.True(t, DefaultSettings().MemoryEnabled)
}

func TestCloneDoesNotShareMessages(t *testing.T) {
	orig := ChatSession{ID: "a", Messages: []Message{{ID: "m1", Text: "one"}}}
	c := orig.Clone()
	c.Messages[0].Text = "changed"
	assert.Equal(t, "one", orig.Messages[0].Text)
}
