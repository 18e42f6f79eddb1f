package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gowiki/gowiki/internal/config"
	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/internal/wiki"
)

// useSQLite points the CLI at a fresh sqlite database for the test.
func useSQLite(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "wiki.db")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SQL_DSN", dsn)
	t.Setenv("REDIS_HOST", "")
	t.Setenv("LOG_LEVEL", "error")
	return dsn
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "export", "import", "search"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	useSQLite(t)
	_, err := run(t, "export", "--format", "xml")
	require.Error(t, err)
}

// seed writes pages through the store using the same configuration the commands load.
func seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	s, backend, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer backend.Close(ctx)
	alice := &identity.Identity{Username: "alice"}
	p, err := s.CreatePage(ctx, "Install Guide", "run the installer", "docs/install", alice)
	require.NoError(t, err)
	_, err = s.UpdatePage(ctx, p.ID, "run the installer twice", "clarify", alice)
	require.NoError(t, err)
	_, err = s.CreatePage(ctx, "Roadmap", "ship it", "plans", alice)
	require.NoError(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	useSQLite(t)
	seed(t)

	out, err := run(t, "export", "--format", "json")
	require.NoError(t, err)
	var pages []wiki.Page
	require.NoError(t, json.Unmarshal([]byte(out), &pages))
	require.Len(t, pages, 2)
	require.Len(t, pages[0].Revisions, 1)

	yamlFile := filepath.Join(t.TempDir(), "pages.yaml")
	_, err = run(t, "export", "--format", "yaml", "-o", yamlFile)
	require.NoError(t, err)

	// import into a second, empty database
	useSQLite(t)
	out, err = run(t, "import", yamlFile)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 pages")

	// a non-empty wiki is protected
	_, err = run(t, "import", yamlFile)
	require.Error(t, err)
	_, err = run(t, "import", "--force", yamlFile)
	require.NoError(t, err)

	out, err = run(t, "search", "--format", "json", "INSTALLER")
	require.NoError(t, err)
	var hits []wiki.Page
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "docs/install", hits[0].Path)
	assert.Equal(t, "run the installer", hits[0].Revisions[0].Content)
}

func TestImportRejectsInvalidSnapshots(t *testing.T) {
	useSQLite(t)
	file := filepath.Join(t.TempDir(), "dup.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"id":"1","title":"A","path":"a","revisions":[]},
		{"id":"2","title":"B","path":"a","revisions":[]}
	]`), 0o600))

	_, err := run(t, "import", file)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(file, []byte(`not json`), 0o600))
	_, err = run(t, "import", file)
	require.Error(t, err)

	for _, record := range []string{
		`[null]`,
		`[{"id":"1","title":"A","path":"../etc//x","revisions":[]}]`,
	} {
		require.NoError(t, os.WriteFile(file, []byte(record), 0o600))
		require.NotPanics(t, func() { _, err = run(t, "import", file) })
		require.ErrorContains(t, err, "invalid snapshot")
	}

	yml := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("- null\n"), 0o600))
	_, err = run(t, "import", yml)
	require.ErrorContains(t, err, "invalid snapshot")

	out, err := run(t, "--format", "json", "export")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestSearchText(t *testing.T) {
	useSQLite(t)
	seed(t)

	out, err := run(t, "search", "roadmap")
	require.NoError(t, err)
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "plans")

	out, err = run(t, "search", "nothing-matches-this")
	require.NoError(t, err)
	assert.Contains(t, out, "no matches")
}
