package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_StatusLevels_PrintIconAndMessage(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		icon  string
		msg   string
	}{
		{"status", func(w *Writer) { w.Status("🔍", "Resolving field configs") }, "🔍", "Resolving field configs"},
		{"success", func(w *Writer) { w.Success("Reindex complete") }, "✅", "Reindex complete"},
		{"warning", func(w *Writer) { w.Warning("2 steps failed") }, "⚠️", "2 steps failed"},
		{"error", func(w *Writer) { w.Error("Index locked") }, "❌", "Index locked"},
		{"statusf", func(w *Writer) { w.Statusf("📂", "Found %d records in %s", 42, "Page") }, "📂", "Found 42 records in Page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer with a buffer
			buf := &bytes.Buffer{}
			w := New(buf)

			// When: writing the message
			tt.write(w)

			// Then: output contains icon and message
			assert.Contains(t, buf.String(), tt.icon)
			assert.Contains(t, buf.String(), tt.msg)
		})
	}
}

func TestWriter_Status_NoIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Status("", "detail")

	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_KeyValue_AlignsLabel(t *testing.T) {
	// Given: a plain writer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a key/value pair
	w.KeyValue("Documents", 12)

	// Then: label is padded and value follows
	assert.Equal(t, "  Documents:     12\n", buf.String())
}

func TestWriter_Code_PrintsCodeBlock(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Code("classes:\n  - name: Page")

	assert.Contains(t, buf.String(), "  classes:\n    - name: Page\n")
}

func TestWriter_Progress_PrintsProgressBar(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing progress at 50%
	w.Progress(50, 100, "Page#7")

	// Then: output contains progress indicator and message on its own line
	output := buf.String()
	assert.Contains(t, output, "50%")
	assert.Contains(t, output, "Page#7")
	assert.False(t, strings.HasPrefix(output, "\r"))
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestWriter_Progress_ZeroTotal_NoOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Progress(0, 0, "Processing")

	assert.Empty(t, buf.String())
}

func TestProgressBar_Render(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		wantFull int
	}{
		{"0 percent", 0, 100, 10, 0},
		{"50 percent", 50, 100, 10, 5},
		{"100 percent", 100, 100, 10, 10},
		{"25 percent", 25, 100, 20, 5},
		{"overflow clamps", 150, 100, 10, 10},
		{"zero total", 5, 0, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderProgressBar(tt.current, tt.total, tt.width)

			assert.Equal(t, tt.wantFull, strings.Count(bar, "█"))
			assert.Equal(t, tt.width, len([]rune(bar)))
		})
	}
}

func TestWriter_Newline_PrintsEmptyLine(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Newline()

	assert.Equal(t, "\n", buf.String())
}

func TestShouldUseColor_NonTerminal(t *testing.T) {
	// Given: a writer that is not a file
	buf := &bytes.Buffer{}

	// Then: color is disabled
	assert.False(t, ShouldUseColor(buf))
	assert.False(t, New(buf).useColor)
}

func TestShouldUseColor_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	assert.False(t, ShouldUseColor(nil))
}

func TestWriter_Emphasize_PlainWithoutColor(t *testing.T) {
	w := New(&bytes.Buffer{})

	assert.Equal(t, "term", w.Emphasize("term"))
}
