package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandsAndFlags(t *testing.T) {
	cmd := newRootCmd()
	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"migrate", "seed", "reindex", "cache"})

	cfgFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfgFlag)
	assert.Equal(t, "c", cfgFlag.Shorthand)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("sqlite"))

	clearCmd, _, err := cmd.Find([]string{"cache", "clear"})
	require.NoError(t, err)
	assert.NotNil(t, clearCmd.Flags().Lookup("pattern"))
}

func TestSeedAgainstSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	out, err := run(t, "--config=", "--sqlite", dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migration complete")

	out, err = run(t, "--config=", "--sqlite", dbPath, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "users: 2, offices: 5, procedures: 4")

	out, err = run(t, "--config=", "--sqlite", dbPath, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "users: 0, offices: 0, procedures: 0")
}

func TestUnknownCommand(t *testing.T) {
	_, err := run(t, "nope")
	assert.Error(t, err)
}
