package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// strip renders entries compactly: page numbers, "…" for ellipses, and a
// trailing "*" on the current page.
func strip(entries []PageEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.Ellipsis:
			out = append(out, "…")
		case e.Current:
			out = append(out, fmt.Sprintf("%d*", e.Page))
		default:
			out = append(out, fmt.Sprint(e.Page))
		}
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		start     int
		wantPage  int
		wantPages int
		wantStart int
		wantEnd   int
		wantStrip []string
	}{
		{
			name: "fits within max show", total: 47, start: 0,
			wantPage: 1, wantPages: 5, wantStart: 0, wantEnd: 10,
			wantStrip: []string{"1*", "2", "3", "4", "5"},
		},
		{
			name: "last partial page", total: 47, start: 40,
			wantPage: 5, wantPages: 5, wantStart: 40, wantEnd: 47,
			wantStrip: []string{"1", "2", "3", "4", "5*"},
		},
		{
			name: "deep page", total: 1000, start: 500,
			wantPage: 51, wantPages: 100, wantStart: 500, wantEnd: 510,
			wantStrip: []string{"1", "2", "3", "…", "50", "51*", "52", "53", "54", "…"},
		},
		{
			name: "near the end", total: 1000, start: 990,
			wantPage: 100, wantPages: 100, wantStart: 990, wantEnd: 1000,
			wantStrip: []string{"1", "2", "3", "…", "99", "100*"},
		},
		{
			name: "early page runs on from the fixed block", total: 1000, start: 30,
			wantPage: 4, wantPages: 100, wantStart: 30, wantEnd: 40,
			wantStrip: []string{"1", "2", "3", "4*", "5", "6", "7", "8", "…"},
		},
		{
			name: "start beyond the last page is clamped", total: 25, start: 900,
			wantPage: 3, wantPages: 3, wantStart: 20, wantEnd: 25,
			wantStrip: []string{"1", "2", "3*"},
		},
		{
			name: "no hits", total: 0, start: 0,
			wantPage: 1, wantPages: 1, wantStart: 0, wantEnd: 0,
			wantStrip: []string{"1*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, entries := Paginate(tt.total, Request{Start: tt.start, PageSize: 10, AlwaysShow: 3, MaxShow: 8})

			assert.Equal(t, tt.wantPage, w.CurrentPage)
			assert.Equal(t, tt.wantPages, w.TotalPages)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantEnd, w.End)
			assert.Equal(t, tt.total, w.TotalHits)
			assert.Equal(t, tt.wantStrip, strip(entries))
		})
	}
}

func TestPaginate_BoundedWidth(t *testing.T) {
	for start := 0; start < 5000; start += 70 {
		_, entries := Paginate(5000, Request{Start: start})
		numbered := 0
		for _, e := range entries {
			if !e.Ellipsis {
				numbered++
			}
		}
		assert.LessOrEqual(t, numbered, DefaultMaxShow)
		assert.LessOrEqual(t, len(entries), DefaultMaxShow+2)
	}
}

func TestPaginate_Defaults(t *testing.T) {
	w, _ := Paginate(35, Request{Start: -5})
	assert.Equal(t, DefaultPageSize, w.PageSize)
	assert.Equal(t, 1, w.CurrentPage)
	assert.Equal(t, 4, w.TotalPages)
}

func TestPaginate_Links(t *testing.T) {
	_, entries := Paginate(1000, Request{
		Start: 500, PageSize: 10, AlwaysShow: 3, MaxShow: 8,
		Link: func(start int) string { return fmt.Sprintf("?start=%d", start) },
	})

	assert.Equal(t, "?start=0", entries[0].Link)
	assert.Equal(t, "", entries[3].Link)
	assert.Equal(t, "?start=490", entries[4].Link)
}
