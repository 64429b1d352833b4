package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

const sampleLog = `{"time":"2026-03-01T10:00:00Z","level":"DEBUG","msg":"index_upsert","class":"Page","id":"1"}
{"time":"2026-03-01T10:00:01Z","level":"INFO","msg":"reindex_started","total":3}
not json at all
{"time":"2026-03-01T10:00:02Z","level":"WARN","msg":"reindex_step_failed","class":"File","id":"9"}
{"time":"2026-03-01T10:00:03Z","level":"ERROR","msg":"commit failed"}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitesearch.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}
	return path
}

func TestParseLine(t *testing.T) {
	entry := parseLine(`{"time":"2026-03-01T10:00:00Z","level":"INFO","msg":"hello","class":"Page"}`)
	if !entry.IsValid {
		t.Fatal("expected valid entry")
	}
	if entry.Level != "INFO" || entry.Msg != "hello" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Attrs["class"] != "Page" {
		t.Errorf("expected class attr, got %v", entry.Attrs)
	}
	if _, ok := entry.Attrs["msg"]; ok {
		t.Error("standard keys should not be repeated in attrs")
	}

	raw := parseLine("plain text")
	if raw.IsValid || raw.Raw != "plain text" {
		t.Errorf("expected raw entry, got %+v", raw)
	}
}

func TestViewer_Tail(t *testing.T) {
	path := writeSample(t)
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	all, err := v.Tail(path, 0)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(all))
	}

	last, err := v.Tail(path, 2)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(last) != 2 || last[1].Msg != "commit failed" {
		t.Errorf("unexpected tail: %+v", last)
	}
}

func TestViewer_Tail_Filters(t *testing.T) {
	path := writeSample(t)

	v := NewViewer(ViewerConfig{Level: "warn", NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 0)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	// Unparseable lines are never dropped by the level filter.
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	v = NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`"class":"File"`), NoColor: true}, &bytes.Buffer{})
	entries, err = v.Tail(path, 0)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Msg != "reindex_step_failed" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestViewer_Tail_NonexistentFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})
	if _, err := v.Tail("/nonexistent/sitesearch.log", 10); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	line := v.FormatEntry(parseLine(`{"time":"2026-03-01T10:00:00Z","level":"WARN","msg":"reindex_step_failed","id":"9","class":"File"}`))
	if line != "10:00:00.000 WARN  reindex_step_failed class=File id=9" {
		t.Errorf("unexpected format: %q", line)
	}

	if got := v.FormatEntry(parseLine("garbage")); got != "garbage" {
		t.Errorf("expected raw line, got %q", got)
	}
}

func TestViewer_Print(t *testing.T) {
	var buf bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &buf)

	entries, err := v.Tail(writeSample(t), 1)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	v.Print(entries)

	if !strings.Contains(buf.String(), "ERROR commit failed") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
