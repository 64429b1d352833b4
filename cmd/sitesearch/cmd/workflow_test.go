package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/sitesearch/internal/telemetry"
)

func searchJSON(t *testing.T, dir string, args ...string) jsonPage {
	t.Helper()
	out, err := runCLI(t, append([]string{"search", "--dir", dir, "--format", "json"}, args...)...)
	require.NoError(t, err)
	var page jsonPage
	require.NoError(t, json.Unmarshal([]byte(out), &page), out)
	return page
}

func statusJSON(t *testing.T, dir string) statusInfo {
	t.Helper()
	out, err := runCLI(t, "status", "--dir", dir, "--json")
	require.NoError(t, err)
	var info statusInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info), out)
	return info
}

func refsOf(page jsonPage) []string {
	var refs []string
	for _, r := range page.Results {
		refs = append(refs, r.Class+"#"+jsonID(r.ID))
	}
	return refs
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestImportCmd_IndexesThroughHooks(t *testing.T) {
	// Given: a project and a seed
	dir, seed := newProject(t)

	// When: importing
	out, err := runCLI(t, "import", "--dir", dir, seed)

	// Then: every record is stored and indexed, unpublished ones included
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 4 records")
	page := searchJSON(t, dir, "budget")
	assert.ElementsMatch(t, []string{"Page#1", "Page#3", "File#10"}, refsOf(page))
}

func TestImportCmd_NoIndex(t *testing.T) {
	dir, seed := newProject(t)

	_, err := runCLI(t, "import", "--dir", dir, "--no-index", seed)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), statusJSON(t, dir).Documents)
}

func TestReindexCmd_FullSkipsUnpublished(t *testing.T) {
	// Given: imported records
	dir, seed := newProject(t)
	_, err := runCLI(t, "import", "--dir", dir, seed)
	require.NoError(t, err)

	// When: running a full reindex
	out, err := runCLI(t, "reindex", "--dir", dir, "--full")

	// Then: the index holds published records only
	require.NoError(t, err)
	assert.Contains(t, out, "Reindex complete")
	page := searchJSON(t, dir, "budget")
	assert.ElementsMatch(t, []string{"Page#1", "File#10"}, refsOf(page))

	// And: completion is recorded
	info := statusJSON(t, dir)
	assert.Equal(t, uint64(3), info.Documents)
	assert.Equal(t, "3", info.LastReindexN)
	assert.NotEmpty(t, info.LastReindexAt)
	assert.Zero(t, info.PendingSteps)
}

func TestReindexCmd_PauseAndResume(t *testing.T) {
	// Given: records that were stored but never indexed
	dir, seed := newProject(t)
	_, err := runCLI(t, "import", "--dir", dir, "--no-index", seed)
	require.NoError(t, err)

	// When: running one step of a full reindex
	out, err := runCLI(t, "reindex", "--dir", dir, "--full", "--steps", "1", "-q")

	// Then: the job pauses with work left
	require.NoError(t, err)
	assert.Contains(t, out, "Paused")
	info := statusJSON(t, dir)
	assert.Equal(t, 2, info.PendingSteps)
	assert.True(t, info.PendingFull)
	assert.Equal(t, uint64(1), info.Documents)

	// When: resuming
	out, err = runCLI(t, "reindex", "--dir", dir, "--resume", "-q")

	// Then: the job completes where it stopped
	require.NoError(t, err)
	assert.Contains(t, out, "Reindex complete")
	assert.Contains(t, out, "Resumed")
	info = statusJSON(t, dir)
	assert.Zero(t, info.PendingSteps)
	assert.Equal(t, uint64(3), info.Documents)
}

func TestRecordCmds_RemoveUpsertDelete(t *testing.T) {
	// Given: an indexed project
	dir, seed := newProject(t)
	_, err := runCLI(t, "import", "--dir", dir, seed)
	require.NoError(t, err)
	_, err = runCLI(t, "reindex", "--dir", dir, "--full", "-q")
	require.NoError(t, err)

	// When: removing a page from the index
	_, err = runCLI(t, "remove", "--dir", dir, "Page#1")
	require.NoError(t, err)

	// Then: it no longer matches
	assert.Equal(t, []string{"File#10"}, refsOf(searchJSON(t, dir, "budget")))

	// When: upserting it again, as "Class ID"
	_, err = runCLI(t, "upsert", "--dir", dir, "Page", "1")
	require.NoError(t, err)
	assert.Len(t, searchJSON(t, dir, "budget").Results, 2)

	// When: deleting the file record
	_, err = runCLI(t, "delete", "--dir", dir, "File#10")
	require.NoError(t, err)

	// Then: it is gone from the index and the store
	assert.Equal(t, []string{"Page#1"}, refsOf(searchJSON(t, dir, "budget")))
	_, err = runCLI(t, "upsert", "--dir", dir, "File#10")
	require.Error(t, err)
}

func TestRecordCmds_InvalidRef(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "upsert", "--dir", t.TempDir(), "Page-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid record reference")
}

func TestSearchCmd_PaginatesAndHighlights(t *testing.T) {
	// Given: an indexed project
	dir, seed := newProject(t)
	_, err := runCLI(t, "import", "--dir", dir, seed)
	require.NoError(t, err)
	_, err = runCLI(t, "reindex", "--dir", dir, "--full", "-q")
	require.NoError(t, err)

	// When: asking for one result per page
	page := searchJSON(t, dir, "--limit", "1", "budget")

	// Then: the first of two pages is returned with links
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.StartResult)
	assert.Equal(t, 1, page.EndResult)
	require.Len(t, page.Results, 1)
	assert.Contains(t, page.Results[0].Excerpt, "<strong>budget</strong>")
	assert.Empty(t, page.Prev)
	assert.Equal(t, "/search?Search=budget&start=1", page.Next)
	require.Len(t, page.Pages, 2)
	assert.True(t, page.Pages[0].Current)

	// When: asking for the second page
	second := searchJSON(t, dir, "--limit", "1", "--start", "1", "budget")

	// Then: the other hit is shown
	require.Len(t, second.Results, 1)
	assert.Equal(t, 2, second.Results[0].Number)
	assert.NotEqual(t, page.Results[0].ID, second.Results[0].ID)
	assert.Equal(t, "/search?Search=budget&start=0", second.Prev)
}

func TestSearchCmd_TextOutput(t *testing.T) {
	dir, seed := newProject(t)
	_, err := runCLI(t, "import", "--dir", dir, seed)
	require.NoError(t, err)

	out, err := runCLI(t, "search", "--dir", dir, "contact")
	require.NoError(t, err)
	assert.Contains(t, out, "Results 1-1 of 1")
	assert.Contains(t, out, "Contact")
	assert.Contains(t, out, "/contact/")
	assert.Contains(t, out, "Pages: [1]")

	out, err = runCLI(t, "search", "--dir", dir, "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestSearchCmd_RejectsUnknownFormat(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, "search", "--format", "xml", "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestExtractCmd(t *testing.T) {
	// Given: a project with a text file
	dir, _ := newProject(t)

	// When: extracting it
	out, err := runCLI(t, "extract", "--dir", dir, filepath.Join(dir, "notes.txt"))

	// Then: its text is printed
	require.NoError(t, err)
	assert.Contains(t, out, "Quarterly budget notes")

	// And: unsupported files fail
	other := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(other, []byte{0, 1, 2}, 0o644))
	_, err = runCLI(t, "extract", "--dir", dir, other)
	require.Error(t, err)
}

func TestExtractCmd_List(t *testing.T) {
	dir, _ := newProject(t)

	out, err := runCLI(t, "extract", "--dir", dir, "--list")

	require.NoError(t, err)
	assert.Contains(t, out, ".pdf:")
	assert.Contains(t, out, ".txt:")
}

func TestStatsCmd_RecordsSearches(t *testing.T) {
	// Given: an imported project
	dir, seed := newProject(t)
	_, err := runCLI(t, "import", "--dir", dir, seed)
	require.NoError(t, err)

	// When: searching for a hit and a miss
	searchJSON(t, dir, "budget")
	searchJSON(t, dir, "nonexistentword")

	// Then: stats report both
	out, err := runCLI(t, "stats", "--dir", dir, "--json")
	require.NoError(t, err)
	var report statsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, int64(2), report.QueryTypes["single"])
	assert.Contains(t, report.TopTerms, telemetry.TermCount{Term: "budget", Count: 1})
	assert.Equal(t, []string{"nonexistentword"}, report.ZeroResults)

	text, err := runCLI(t, "stats", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, text, "Top terms")
	assert.Contains(t, text, "nonexistentword")
}

func TestStatsCmd_NoSearchesYet(t *testing.T) {
	dir, _ := newProject(t)

	out, err := runCLI(t, "stats", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "No searches recorded yet")
}
