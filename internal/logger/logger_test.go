package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuild_FileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.LogConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File: config.LogFileConfig{
			Path:     dir,
			Filename: "bingo.log",
			MaxSize:  1,
		},
	}

	l, modules, err := build(cfg)
	require.NoError(t, err)
	assert.Empty(t, modules)

	l.Debug("不应写入")
	l.Info("会话创建", zap.String("session_id", "s1"))
	l.Error("保存失败", zap.String("session_id", "s1"))
	_ = l.Sync()

	main, err := os.ReadFile(filepath.Join(dir, "bingo.log"))
	require.NoError(t, err)
	assert.Contains(t, string(main), "会话创建")
	assert.Contains(t, string(main), `"session_id":"s1"`)
	assert.NotContains(t, string(main), "不应写入")

	errLog, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errLog), "保存失败")
	assert.NotContains(t, string(errLog), "会话创建")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("unknown"))
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	SetLevel("error")
	assert.Equal(t, zapcore.ErrorLevel, Level())
	SetLevel("debug")
	assert.Equal(t, zapcore.DebugLevel, Level())
}

func TestGetModuleLogger_FallsBack(t *testing.T) {
	assert.NotNil(t, GetModuleLogger("game"))
}

func TestLogGameEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	LogGameEvent(zap.New(core), "number_called", "s1", map[string]interface{}{"number": 7})

	entries := logs.FilterMessage("game_event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "number_called", fields["event"])
	assert.Equal(t, "s1", fields["session_id"])
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestLogWebSocketMessage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	LogWebSocketMessage(zap.New(core), "receive", "mark", map[string]int{"number": 7})

	entries := logs.FilterMessage("ws_message").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "receive", fields["direction"])
	assert.Equal(t, "mark", fields["type"])
}
