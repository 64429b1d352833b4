package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testProjectConfig = `classes:
  - name: SiteTree
  - name: File
    fields: Title
`

// isolate keeps user config, env overrides and logs out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SITESEARCH_LOG_DIR", t.TempDir())
	for _, key := range []string{
		"SITESEARCH_INDEX_PATH", "SITESEARCH_RECORDS_PATH", "SITESEARCH_PAGE_SIZE",
		"SITESEARCH_EXTRACT_TIMEOUT", "SITESEARCH_MAX_CONCURRENT", "SITESEARCH_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

// runCLI executes the root command with args and returns its combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// newProject writes a project config and a seed with three pages (one
// unpublished) and one text file, and returns the project dir and seed path.
func newProject(t *testing.T) (string, string) {
	t.Helper()
	isolate(t)
	dir := t.TempDir()

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("Quarterly budget notes for the board."), 0o644))

	seed := `classes:
  - {name: SiteTree}
  - {name: Page, parent: SiteTree}
records:
  - class: Page
    id: 1
    link: /about/
    attrs: {Title: About us, Content: "<p>We build search tools for the budget office.</p>"}
  - class: Page
    id: 2
    link: /contact/
    attrs: {Title: Contact, Content: Email us any time.}
  - class: Page
    id: 3
    published: false
    attrs: {Title: Draft budget, Content: Not ready.}
  - class: File
    id: 10
    file: ` + notes + `
    attrs: {Title: Board notes, Filename: notes.txt}
`
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seed), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sitesearch.yaml"), []byte(testProjectConfig), 0o644))
	return dir, seedPath
}
