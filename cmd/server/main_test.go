package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestMigrateCommand_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "listen.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestMigrateCommand_InvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate"})
	assert.Error(t, cmd.Execute())
}
