package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/nbharvest/ai"
	"github.com/poiesic/nbharvest/config"
	"github.com/poiesic/nbharvest/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// writeConfig writes a config file that keeps all state inside a temp dir.
func writeConfig(t *testing.T) (path, exportDir string) {
	t.Helper()
	for _, key := range []string{config.EnvMongoURI, config.EnvOpenAIKey, config.EnvColabEnabled} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	exportDir = filepath.Join(dir, "exported")
	path = filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("storage:\n  backend: badger\n  path: %s\nexport:\n  dir: %s\ngoogle:\n  token_file: %s\n",
		filepath.Join(dir, "db"), exportDir, filepath.Join(dir, "token.json"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, exportDir
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"nbharvest"}, args...))
	return out.String(), err
}

func findCommand(t *testing.T, name string) *cli.Command {
	t.Helper()
	for _, cmd := range newApp().Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestReadURLs(t *testing.T) {
	urls, err := readURLs(strings.NewReader(`
# course notebooks
https://colab.research.google.com/drive/abc

  https://github.com/org/repo/blob/main/a.ipynb
`))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://colab.research.google.com/drive/abc",
		"https://github.com/org/repo/blob/main/a.ipynb",
	}, urls)
}

func TestDefaultResources(t *testing.T) {
	urls, err := readURLs(strings.NewReader(defaultResources))
	require.NoError(t, err)
	require.NotEmpty(t, urls)

	seen := make(map[string]bool)
	for _, u := range urls {
		assert.False(t, seen[u], "duplicate %s", u)
		seen[u] = true
	}

	colab, github, unsupported := ingestion.Partition(urls)
	assert.NotEmpty(t, colab)
	assert.NotEmpty(t, github)
	assert.Empty(t, unsupported)
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := runApp(t, "--log-level", "loud", "--config", cfg, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestStatsCommand(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := runApp(t, "--config", cfg, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Notebooks: 0")
}

func TestIngestCommand_ReportsSkippedURLs(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := runApp(t, "--config", cfg, "ingest",
		"https://example.com/notebook.ipynb",
		"https://colab.research.google.com/drive/1a2b3c4d5e",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "(unsupported)")
	assert.Contains(t, out, "(disabled)")
	assert.Contains(t, out, "Saved 0 notebooks, skipped 2")
}

func TestIngestCommand_MissingFile(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := runApp(t, "--config", cfg, "ingest", "--file", filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorContains(t, err, "failed to open url file")
}

func TestExportCommand_EmptyStore(t *testing.T) {
	cfg, exportDir := writeConfig(t)
	out, err := runApp(t, "--config", cfg, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 0 notebooks to "+exportDir)
	assert.DirExists(t, exportDir)
}

func TestSearchCommand(t *testing.T) {
	cfg, _ := writeConfig(t)

	t.Run("query is required", func(t *testing.T) {
		_, err := runApp(t, "--config", cfg, "search")
		assert.ErrorContains(t, err, "query is required")
	})

	t.Run("invalid course level", func(t *testing.T) {
		_, err := runApp(t, "--config", cfg, "search", "--course-level", "expert", "loops")
		assert.Error(t, err)
	})

	t.Run("hosted API needs a key", func(t *testing.T) {
		_, err := runApp(t, "--config", cfg, "search", "loops")
		assert.ErrorIs(t, err, ai.ErrAPIKeyRequired)
	})

	t.Run("limit defaults to 10", func(t *testing.T) {
		cmd := findCommand(t, "search")
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "limit" {
				assert.Equal(t, 10, f.Value)
				return
			}
		}
		t.Fatal("limit flag not found")
	})
}

func TestReembedCommandFlags(t *testing.T) {
	cfg, _ := writeConfig(t)

	t.Run("batch-size must be positive", func(t *testing.T) {
		_, err := runApp(t, "--config", cfg, "reembed", "--batch-size", "0")
		assert.ErrorContains(t, err, "batch-size")
	})

	t.Run("max-retries must be positive", func(t *testing.T) {
		_, err := runApp(t, "--config", cfg, "reembed", "--max-retries", "0")
		assert.ErrorContains(t, err, "max-retries")
	})

	t.Run("empty store reports nothing to do", func(t *testing.T) {
		t.Setenv(config.EnvOpenAIKey, "sk-test")
		out, err := runApp(t, "--config", cfg, "reembed")
		require.NoError(t, err)
		assert.Contains(t, out, "No notebooks to reembed")
	})
}

func TestAuthorizeCommand_RequiresClient(t *testing.T) {
	cfg, _ := writeConfig(t)
	for _, key := range []string{config.EnvGoogleClientID, config.EnvGoogleClientSecret} {
		t.Setenv(key, "")
	}
	_, err := runApp(t, "--config", cfg, "authorize", "--no-browser")
	assert.ErrorContains(t, err, "client id and secret")
}
