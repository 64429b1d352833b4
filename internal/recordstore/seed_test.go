package recordstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

const seedYAML = `
classes:
  - {name: SiteTree}
  - {name: Page, parent: SiteTree}
relations:
  - {class: SiteTree, name: Parent, kind: has_one}
records:
  - class: Page
    id: 1
    link: /
    attrs: {Title: Home}
  - class: Page
    id: 2
    published: false
    link: /about/
    attrs: {Title: About, Sort: 3}
    relations: {Parent: [Page#1]}
`

func TestImport(t *testing.T) {
	// Given
	ctx := context.Background()
	s := newTestStore(t)
	seed, err := ReadSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	// When
	refs, err := s.Import(ctx, seed)

	// Then
	require.NoError(t, err)
	assert.Equal(t, []record.Ref{{Class: "Page", ID: 1}, {Class: "Page", ID: 2}}, refs)
	assert.Equal(t, []string{"SiteTree"}, s.Ancestors("Page"))

	rec, err := s.Load(ctx, record.Ref{Class: "Page", ID: 2})
	require.NoError(t, err)
	assert.False(t, rec.(record.Publishable).IsPublished())
	sort, _ := rec.TryRead("Sort")
	assert.Equal(t, "3", sort)
	parent, err := record.NewResolver(nil).Value(rec, "Parent.Title")
	require.NoError(t, err)
	assert.Equal(t, "Home", parent)
}

func TestReadSeed_Invalid(t *testing.T) {
	_, err := ReadSeed(strings.NewReader("records:\n  - class: Page\n    colour: red\n"))
	assert.Equal(t, serrors.ErrCodeInvalidInput, serrors.GetCode(err))
}

func TestImport_BadTarget(t *testing.T) {
	seed, err := ReadSeed(strings.NewReader("records:\n  - {class: Page, id: 1, relations: {Parent: [nope]}}\n"))
	require.NoError(t, err)

	_, err = newTestStore(t).Import(context.Background(), seed)
	assert.Equal(t, serrors.ErrCodeInvalidInput, serrors.GetCode(err))
}

func TestParseRef(t *testing.T) {
	ref, ok := ParseRef("Page#12")
	assert.True(t, ok)
	assert.Equal(t, record.Ref{Class: "Page", ID: 12}, ref)

	_, ok = ParseRef("Page12")
	assert.False(t, ok)
	_, ok = ParseRef("Page#x")
	assert.False(t, ok)
}
