package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/RichardoC/arohi/internal/config"
	"github.com/RichardoC/arohi/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arohi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestAskWithoutCredentialsApologises(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("AROHI_API_KEY", "")

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", writeConfig(t, "provider: gemini\nlog_level: error\n"), "ask", "hello"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, llm.Apology+"\n", out.String())
}

func TestAskRejectsUnknownProvider(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t, "provider: smoke-signals\n"), "ask", "hello"})

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := newLogger("loud")
	assert.Error(t, err)

	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestCompletionServiceUsesConfiguredModel(t *testing.T) {
	cfg := &config.Config{
		Provider: config.ProviderOpenAI,
		Model:    "llama3.1:8b",
		BaseURL:  "http://localhost:11434/v1/",
		Timeout:  llm.DefaultTimeout,
	}
	svc := newCompletionService(context.Background(), cfg, zap.NewNop())
	assert.Equal(t, "llama3.1:8b", svc.Model())
}
