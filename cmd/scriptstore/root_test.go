package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suyash-sneo/scriptstore"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "ping", "repair", "shell"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"config", "log-level", "memory"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestPingAgainstMemoryStore(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ping", "--memory", "--log-level", "error"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `ok: read back "test-value"`)
}

func TestRepairAgainstMemoryStore(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"repair", "--memory", "--log-level", "error"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "scripts: 0\nnothing to repair\n", out.String())
}

func TestRejectsUnknownLogLevel(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"ping", "--memory", "--log-level", "loud"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scriptstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: 127.0.0.1:9999\nlogLevel: debug\n"), 0o600))

	opts := &RootOptions{ConfigPath: path}
	cfg, logger, err := opts.load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NotNil(t, logger)
}

func TestLogrusLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("debug", &buf)
	require.NoError(t, err)

	logger.Info("script created", scriptstore.F("id", "abc"), scriptstore.F("name", "hello"))
	logger.Debug("plain")

	out := buf.String()
	assert.Contains(t, out, "script created")
	assert.Contains(t, out, "id=abc")
	assert.Contains(t, out, "name=hello")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestLogrusLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrintReportListsUnreadable(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, scriptstore.ReconcileReport{Scripts: 1, Unreadable: []string{"a", "b"}})
	assert.Equal(t, "scripts: 1\nunreadable (left in place): a, b\nnothing to repair\n", out.String())
}
