package search

import (
	"net/url"
	"strconv"
)

// StartParam is the query parameter carrying the first hit of a page.
const StartParam = "start"

// LinkBuilder builds page links from a base URL, replacing its start
// parameter and keeping every other parameter.
type LinkBuilder struct {
	path  string
	query url.Values
}

// NewLinkBuilder parses rawURL, usually the URL of the current request.
func NewLinkBuilder(rawURL string) (*LinkBuilder, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Del(StartParam)
	return &LinkBuilder{path: u.Path, query: q}, nil
}

// With returns a copy of b with key set to value.
func (b *LinkBuilder) With(key, value string) *LinkBuilder {
	q := make(url.Values, len(b.query)+1)
	for k, v := range b.query {
		q[k] = append([]string(nil), v...)
	}
	q.Set(key, value)
	return &LinkBuilder{path: b.path, query: q}
}

// Link returns the URL of the page starting at hit start.
func (b *LinkBuilder) Link(start int) string {
	q := make(url.Values, len(b.query)+1)
	for k, v := range b.query {
		q[k] = v
	}
	q.Set(StartParam, strconv.Itoa(start))
	return b.path + "?" + q.Encode()
}
