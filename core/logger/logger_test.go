package logger

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/storybot/core/config"
)

func TestResolveSettingsDefaults(t *testing.T) {
	s := resolveSettings(nil)
	require.Equal(t, slog.LevelInfo, s.level)
	require.Equal(t, formatJSON, s.format)
	require.Equal(t, defaultKeyOrder, s.order)
	require.Equal(t, [2]int{1, 50}, s.sample)
	require.Equal(t, "prod", s.profile)
	require.Empty(t, s.file)
}

func TestResolveSettingsFromConfig(t *testing.T) {
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "Warning",
		Profile:     "DEV",
		KeysOrder:   " event, ,status ",
		DebugSample: "0",
		Dir:         "logs",
		BotFile:     "bot.log",
	}}

	s := resolveSettings(cfg)
	require.Equal(t, slog.LevelWarn, s.level)
	require.Equal(t, formatKV, s.format)
	require.Equal(t, "dev", s.profile)
	require.Equal(t, []string{"event", "status"}, s.order)
	require.Equal(t, [2]int{0, 0}, s.sample)
	require.Equal(t, filepath.Join("logs", "bot.log"), s.file)
}

func TestResolveSettingsExplicitFormatWins(t *testing.T) {
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{Format: "json", Profile: "debug", DebugSample: "junk"}}

	s := resolveSettings(cfg)
	require.Equal(t, formatJSON, s.format)
	require.Equal(t, [2]int{1, 50}, s.sample)
}

func TestNormalizeStatus(t *testing.T) {
	got, ok := normalizeStatus(" OK ")
	require.True(t, ok)
	require.Equal(t, "ok", got)

	got, ok = normalizeStatus("exploded")
	require.False(t, ok)
	require.Equal(t, "exploded", got)
}
