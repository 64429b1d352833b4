// Package search runs queries against the index and lays the hits out in
// pages with a bounded-width pagination strip.
package search

// Pagination defaults.
const (
	DefaultPageSize   = 10
	DefaultAlwaysShow = 3
	DefaultMaxShow    = 8
)

// Request describes which page of hits to show.
type Request struct {
	// Start is the zero-based index of the first hit requested.
	Start int
	// PageSize is the number of hits per page. Defaults to DefaultPageSize.
	PageSize int
	// AlwaysShow is how many leading pages are always listed in the strip.
	// Defaults to DefaultAlwaysShow.
	AlwaysShow int
	// MaxShow bounds the numbered entries in the strip. Defaults to
	// DefaultMaxShow and is never less than AlwaysShow.
	MaxShow int
	// Link returns the URL of the page whose first hit is start. Optional.
	Link func(start int) string
}

func (r Request) normalize() Request {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.AlwaysShow <= 0 {
		r.AlwaysShow = DefaultAlwaysShow
	}
	if r.MaxShow <= 0 {
		r.MaxShow = DefaultMaxShow
	}
	if r.MaxShow < r.AlwaysShow {
		r.MaxShow = r.AlwaysShow
	}
	return r
}

// Window is the page of hits being shown.
type Window struct {
	// CurrentPage is 1-based.
	CurrentPage int
	TotalPages  int
	PageSize    int
	TotalHits   int
	// Start and End bound the visible hits: hits[Start:End].
	Start int
	End   int
}

// PageEntry is one item of the pagination strip.
type PageEntry struct {
	// Page is the 1-based page number, 0 for an ellipsis.
	Page     int    `json:"page"`
	Link     string `json:"link,omitempty"`
	Current  bool   `json:"current,omitempty"`
	Ellipsis bool   `json:"ellipsis,omitempty"`
}

// Paginate computes the visible window over total hits and the pagination
// strip. The strip lists pages 1..AlwaysShow, then a sliding block that
// follows the current page, with an ellipsis wherever pages are skipped.
func Paginate(total int, req Request) (Window, []PageEntry) {
	req = req.normalize()
	if total < 0 {
		total = 0
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	current := req.Start/req.PageSize + 1
	if current > totalPages {
		current = totalPages
	}

	w := Window{
		CurrentPage: current,
		TotalPages:  totalPages,
		PageSize:    req.PageSize,
		TotalHits:   total,
		Start:       min((current-1)*req.PageSize, total),
		End:         min(current*req.PageSize, total),
	}

	entry := func(page int) PageEntry {
		e := PageEntry{Page: page, Current: page == current}
		if req.Link != nil {
			e.Link = req.Link((page - 1) * req.PageSize)
		}
		return e
	}

	var strip []PageEntry
	for p := 1; p <= min(totalPages, req.AlwaysShow); p++ {
		strip = append(strip, entry(p))
	}
	if totalPages <= req.AlwaysShow {
		return w, strip
	}

	extraStart := max(current-1, req.AlwaysShow+1)
	if totalPages <= req.MaxShow {
		extraStart = req.AlwaysShow + 1
	}
	extraEnd := min(extraStart+(req.MaxShow-req.AlwaysShow)-1, totalPages)

	if extraStart > req.AlwaysShow+1 {
		strip = append(strip, PageEntry{Ellipsis: true})
	}
	for p := extraStart; p <= extraEnd; p++ {
		strip = append(strip, entry(p))
	}
	if extraEnd < totalPages {
		strip = append(strip, PageEntry{Ellipsis: true})
	}
	return w, strip
}
