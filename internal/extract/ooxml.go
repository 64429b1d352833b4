package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Office Open XML packages (docx, xlsx, pptx) are zip archives of XML
// parts. Text lives in a handful of elements per format.

// ExtractDocx returns the paragraph text of a Word document.
func ExtractDocx(_ context.Context, filename string) (string, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	part := findPart(&zr.Reader, "word/document.xml")
	if part == nil {
		return "", fmt.Errorf("no word/document.xml in %s", filename)
	}
	return xmlText(part, xmlSpec{text: "t", lineBreak: map[string]bool{"p": true, "br": true}, tab: "tab"})
}

// ExtractXlsx returns the shared strings and inline cell strings of a
// spreadsheet, one per line.
func ExtractXlsx(_ context.Context, filename string) (string, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	var parts []string
	if shared := findPart(&zr.Reader, "xl/sharedStrings.xml"); shared != nil {
		text, err := xmlText(shared, xmlSpec{text: "t", lineBreak: map[string]bool{"si": true}})
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	for _, sheet := range numberedParts(&zr.Reader, "xl/worksheets/sheet") {
		text, err := xmlText(sheet, xmlSpec{text: "t", lineBreak: map[string]bool{"is": true}})
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return joinNonEmpty(parts, "\n"), nil
}

// ExtractPptx returns the text of every slide, in slide order.
func ExtractPptx(_ context.Context, filename string) (string, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	var parts []string
	for _, slide := range numberedParts(&zr.Reader, "ppt/slides/slide") {
		text, err := xmlText(slide, xmlSpec{text: "t", lineBreak: map[string]bool{"p": true}})
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return joinNonEmpty(parts, "\n"), nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// numberedParts returns parts named prefixN.xml sorted by N, so that
// slide10 follows slide9.
func numberedParts(zr *zip.Reader, prefix string) []*zip.File {
	type numbered struct {
		n int
		f *zip.File
	}
	var found []numbered
	for _, f := range zr.File {
		if path.Dir(f.Name) != path.Dir(prefix) || !strings.HasPrefix(f.Name, prefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, prefix), ".xml"))
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, f: f})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]*zip.File, len(found))
	for i, nf := range found {
		out[i] = nf.f
	}
	return out
}

// xmlSpec names the elements (by local name) that carry text, end a line,
// or stand for a tab.
type xmlSpec struct {
	text      string
	lineBreak map[string]bool
	tab       string
}

func xmlText(f *zip.File, spec xmlSpec) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var b strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == spec.text {
				depth++
			}
			if spec.tab != "" && t.Name.Local == spec.tab {
				b.WriteByte('\t')
			}
		case xml.EndElement:
			if t.Name.Local == spec.text && depth > 0 {
				depth--
			}
			if spec.lineBreak[t.Name.Local] {
				b.WriteByte('\n')
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	return collapseLines(b.String()), nil
}

// collapseLines trims every line and drops empty ones.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	return joinNonEmpty(lines, "\n")
}

func joinNonEmpty(parts []string, sep string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
