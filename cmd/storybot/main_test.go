package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestStoryCheckBuiltinPlot(t *testing.T) {
	out, err := execute(t, "story", "check")
	require.NoError(t, err)
	require.Contains(t, out, "stages: 8, start: 1, reachable: 8")
}

func TestStoryCheckReportsUnreachableStages(t *testing.T) {
	path := writeFile(t, "plot.yaml", `
start: a
stages:
  - id: a
    text: A
    choices:
      - {token: loop, label: Loop, next: a}
  - id: b
    text: B
`)
	out, err := execute(t, "story", "check", path)
	require.Error(t, err)
	require.Contains(t, out, "unreachable: b")
}

func TestStoryCheckRejectsBrokenGraph(t *testing.T) {
	path := writeFile(t, "plot.yaml", "start: a\nstages:\n  - id: b\n    text: B\n")
	_, err := execute(t, "story", "check", path)
	require.Error(t, err)
}

func TestMigrateMemoryDriver(t *testing.T) {
	path := writeFile(t, "config.yaml", "telegram:\n  token: t\ndatabase:\n  driver: memory\n")
	out, err := execute(t, "migrate", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "nothing to migrate")
}

func TestMigrateSQLite(t *testing.T) {
	db := filepath.Join(t.TempDir(), "story.db")
	path := writeFile(t, "config.yaml", "telegram:\n  token: t\ndatabase:\n  driver: sqlite\n  path: "+db+"\n")

	for range 2 {
		out, err := execute(t, "migrate", "--config", path)
		require.NoError(t, err)
		require.Contains(t, out, "sqlite: migrations applied")
	}
	_, err := os.Stat(db)
	require.NoError(t, err)
}
