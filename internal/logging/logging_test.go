package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithPath_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")

	result := NewLoggerWithPath(Config{Level: "debug", Format: FormatJSON, Output: OutputFile, File: path})
	t.Cleanup(func() { _ = result.Close() })

	require.True(t, result.UsingFile)
	assert.False(t, result.FallbackUsed)
	assert.Equal(t, path, result.FilePath)

	result.Logger.Debug().Str("k", "v").Msg("hello")
	require.NoError(t, result.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "v", line["k"])
}

func TestNewLoggerWithPath_Fallback(t *testing.T) {
	result := NewLoggerWithPath(Config{Output: OutputFile})
	assert.True(t, result.FallbackUsed)
	assert.False(t, result.UsingFile)
	assert.NotEmpty(t, result.FallbackReason)
	assert.Equal(t, zerolog.InfoLevel, result.Logger.GetLevel())
}

func TestNewLogger_BadLevelDefaultsToInfo(t *testing.T) {
	logger := NewLogger(Config{Level: "loud", Format: FormatJSON})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestFromContext_TraceID(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := base.WithContext(context.Background())
	ctx = ContextWithTraceID(ctx, "01TRACE")

	FromContext(ctx).Info().Msg("x")
	assert.Contains(t, buf.String(), `"trace_id":"01TRACE"`)
}

func TestFromContext_Empty(t *testing.T) {
	assert.NotPanics(t, func() {
		FromContext(context.Background()).Info().Msg("discarded")
	})
}

func TestTraceIDs(t *testing.T) {
	a := NewTraceID()
	b := NewTraceID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)

	ctx := ContextWithTraceID(context.Background(), a)
	assert.Equal(t, a, GetOrGenerateTraceID(ctx))
	assert.NotEmpty(t, GetOrGenerateTraceID(context.Background()))
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := ComponentLogger(zerolog.New(&buf), "scan")
	logger.Info().Msg("m")
	assert.Contains(t, buf.String(), `"component":"scan"`)
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	a := newAuditLoggerTo(&buf, nil)

	start := time.Now()
	a.Log(context.Background(), *NewAuditEntry("kick", "T1").WithTarget(1, 2, 3).WithDuration(start))
	a.Log(context.Background(), *NewAuditEntry("ban", "T1").WithTarget(1, 2, 3).WithError("denied"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"action":"kick"`)
	assert.Contains(t, lines[0], `"target_id":3`)
	assert.Contains(t, lines[1], `"success":false`)
	assert.Contains(t, lines[1], `"error":"denied"`)
	require.NoError(t, a.Close())
}

func TestAuditLoggerFromContext(t *testing.T) {
	assert.IsType(t, nopAuditLogger{}, AuditLoggerFromContext(context.Background()))
	assert.IsType(t, nopAuditLogger{}, NewAuditLogger(AuditLoggerConfig{}))

	a := newAuditLoggerTo(&bytes.Buffer{}, nil)
	ctx := ContextWithAuditLogger(context.Background(), a)
	assert.Same(t, a, AuditLoggerFromContext(ctx))
}
