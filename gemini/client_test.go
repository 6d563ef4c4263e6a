package gemini_test

import (
	"testing"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertTurns(t *testing.T) {
	t.Parallel()
	got := gemini.ConvertTurns(edabot.Conversation{
		{Role: edabot.RoleSystem, Content: "rules"},
		{Role: edabot.RoleUser, Content: "Hello"},
		{Role: edabot.RoleAssistant, Content: "Let me help."},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	require.Len(t, got[0].Parts, 1)
	assert.Equal(t, "Hello", got[0].Parts[0].Text)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, "Let me help.", got[1].Parts[0].Text)
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("system turns and temperature", func(t *testing.T) {
		t.Parallel()
		temp := 0.1
		cfg := gemini.BuildConfig(edabot.Request{
			Turns: edabot.Conversation{
				{Role: edabot.RoleSystem, Content: "a"},
				{Role: edabot.RoleSystem, Content: "b"},
				{Role: edabot.RoleUser, Content: "q"},
			},
			MaxTokens:   512,
			Temperature: &temp,
		})
		require.NotNil(t, cfg.SystemInstruction)
		assert.Equal(t, "a\n\nb", cfg.SystemInstruction.Parts[0].Text)
		require.NotNil(t, cfg.Temperature)
		assert.InDelta(t, 0.1, *cfg.Temperature, 1e-6)
		assert.Equal(t, int32(512), cfg.MaxOutputTokens)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg := gemini.BuildConfig(edabot.Request{Turns: edabot.Conversation{{Role: edabot.RoleUser, Content: "q"}}})
		assert.Nil(t, cfg.SystemInstruction)
		assert.Nil(t, cfg.Temperature)
		assert.Equal(t, int32(8192), cfg.MaxOutputTokens)
	})
}
