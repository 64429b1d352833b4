package recordstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/index"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func boolPtr(b bool) *bool { return &b }

func TestStore_HierarchyAndList(t *testing.T) {
	// Given: Page and RedirectorPage inherit from SiteTree
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.DefineClass(ctx, "SiteTree", ""))
	require.NoError(t, s.DefineClass(ctx, "Page", "SiteTree"))
	require.NoError(t, s.DefineClass(ctx, "RedirectorPage", "Page"))
	require.NoError(t, s.Put(ctx, Data{Class: "Page", ID: 2}))
	require.NoError(t, s.Put(ctx, Data{Class: "RedirectorPage", ID: 1}))
	require.NoError(t, s.Put(ctx, Data{Class: "File", ID: 1}))

	// Then: ancestors nearest first
	assert.Equal(t, []string{"Page", "SiteTree"}, s.Ancestors("RedirectorPage"))
	assert.Empty(t, s.Ancestors("File"))

	// When: listing the root class
	recs, err := s.List(ctx, "SiteTree", "")
	require.NoError(t, err)

	// Then: subclasses are included, in identifier order
	var refs []record.Ref
	for _, r := range recs {
		refs = append(refs, r.Ref())
	}
	assert.Equal(t, []record.Ref{{Class: "RedirectorPage", ID: 1}, {Class: "Page", ID: 2}}, refs)
}

func TestStore_DefineClassRejectsLoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.DefineClass(ctx, "A", ""))
	require.NoError(t, s.DefineClass(ctx, "B", "A"))

	err := s.DefineClass(ctx, "A", "B")
	assert.Equal(t, serrors.ErrCodeInvalidInput, serrors.GetCode(err))
}

func TestStore_ListFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Put(ctx, Data{Class: "Page", ID: 1, Attrs: map[string]any{"ShowInSearch": 1}}))
	require.NoError(t, s.Put(ctx, Data{Class: "Page", ID: 2, Attrs: map[string]any{"ShowInSearch": 0}}))

	recs, err := s.List(ctx, "Page", "json_extract(attrs, '$.ShowInSearch') = 1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].Ref().ID)

	_, err = s.List(ctx, "Page", "no_such_column = 1")
	assert.True(t, serrors.IsConfig(err))
}

func TestStore_RecordCapabilities(t *testing.T) {
	// Given: a published file with mixed attribute types
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Put(ctx, Data{
		Class:     "File",
		ID:        9,
		Attrs:     map[string]any{"Title": "Report", "Size": 2048, "Tags": []string{"a", "b"}, "Empty": nil},
		Published: boolPtr(false),
		File:      "/srv/assets/report.pdf",
		Link:      "/assets/report.pdf",
	}))

	// When
	loaded, err := s.Load(ctx, record.Ref{Class: "File", ID: 9})
	require.NoError(t, err)
	rec := loaded.(*Record)

	// Then
	v, ok := rec.TryRead("Title")
	assert.True(t, ok)
	assert.Equal(t, "Report", v)
	v, _ = rec.TryRead("Size")
	assert.Equal(t, "2048", v)
	v, _ = rec.TryRead("Tags")
	assert.Equal(t, `["a","b"]`, v)
	v, ok = rec.TryRead("Empty")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	_, ok = rec.TryRead("Missing")
	assert.False(t, ok)
	v, _ = rec.TryRead("ID")
	assert.Equal(t, "9", v)
	v, _ = rec.TryRead("ClassName")
	assert.Equal(t, "File", v)

	assert.Equal(t, "/srv/assets/report.pdf", rec.FilePath())
	assert.False(t, rec.IsFolder())
	assert.Equal(t, "/assets/report.pdf", rec.Link())
	assert.False(t, rec.IsPublished())
}

func TestStore_PublishedDefaultsTrue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Put(ctx, Data{Class: "Page", ID: 1}))

	rec, err := s.Load(ctx, record.Ref{Class: "Page", ID: 1})
	require.NoError(t, err)
	assert.True(t, rec.(record.Publishable).IsPublished())
}

func TestStore_Accessors(t *testing.T) {
	// Given: an accessor on the parent class
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.DefineClass(ctx, "SiteTree", ""))
	require.NoError(t, s.DefineClass(ctx, "Page", "SiteTree"))
	s.RegisterAccessor("SiteTree", "Title", func(r *Record) string {
		v, _ := r.Attr("Title")
		return strings.ToUpper(v.(string))
	})
	require.NoError(t, s.Put(ctx, Data{Class: "Page", ID: 1, Attrs: map[string]any{"Title": "home"}}))

	rec, err := s.Load(ctx, record.Ref{Class: "Page", ID: 1})
	require.NoError(t, err)

	// Then: accessors are inherited
	v, ok := rec.TryInvoke("Title")
	assert.True(t, ok)
	assert.Equal(t, "HOME", v)
	_, ok = rec.TryInvoke("Content")
	assert.False(t, ok)
}

func TestStore_Relations(t *testing.T) {
	// Given: a page with a parent and ordered tags, one dangling
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.DefineRelation(ctx, "Page", "Parent", record.HasOne))
	require.NoError(t, s.DefineRelation(ctx, "Page", "Tags", record.ManyMany))
	require.NoError(t, s.Put(ctx, Data{Class: "Page", ID: 1, Attrs: map[string]any{"Title": "Root"}}))
	require.NoError(t, s.Put(ctx, Data{Class: "Page", ID: 2}))
	require.NoError(t, s.Put(ctx, Data{Class: "Tag", ID: 10, Attrs: map[string]any{"Title": "go"}}))
	require.NoError(t, s.Put(ctx, Data{Class: "Tag", ID: 11, Attrs: map[string]any{"Title": "search"}}))
	child := record.Ref{Class: "Page", ID: 2}
	require.NoError(t, s.Relate(ctx, child, "Parent", record.Ref{Class: "Page", ID: 1}))
	require.NoError(t, s.Relate(ctx, child, "Tags",
		record.Ref{Class: "Tag", ID: 11}, record.Ref{Class: "Tag", ID: 99}, record.Ref{Class: "Tag", ID: 10}))

	rec, err := s.Load(ctx, child)
	require.NoError(t, err)

	// When: resolving paths through the relations
	values := record.NewResolver(nil)
	parent, err := values.Value(rec, "Parent.Title")
	require.NoError(t, err)
	tags, err := values.Value(rec, "Tags.Title")
	require.NoError(t, err)

	// Then
	assert.Equal(t, "Root", parent)
	assert.Equal(t, "search\ngo", tags)

	_, ok := rec.Relation("Undeclared")
	assert.False(t, ok)

	root, err := s.Load(ctx, record.Ref{Class: "Page", ID: 1})
	require.NoError(t, err)
	rel, ok := root.Relation("Parent")
	assert.True(t, ok)
	assert.Empty(t, rel.Records)
}

func TestStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Load(ctx, record.Ref{Class: "Page", ID: 404})
	assert.True(t, errors.Is(err, index.ErrRecordNotFound))

	err = s.Delete(ctx, record.Ref{Class: "Page", ID: 404})
	assert.True(t, errors.Is(err, index.ErrRecordNotFound))
}

func TestStore_Persistence(t *testing.T) {
	// Given: a store on disk with a hierarchy and a relation
	ctx := context.Background()
	path := t.TempDir() + "/records.db"
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.DefineClass(ctx, "Page", "SiteTree"))
	require.NoError(t, s.DefineRelation(ctx, "Page", "Parent", record.HasOne))
	require.NoError(t, s.Close())

	// When: reopened
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	// Then
	assert.Equal(t, []string{"SiteTree"}, s.Ancestors("Page"))
	require.NoError(t, s.Put(ctx, Data{Class: "Page", ID: 1}))
	rec, err := s.Load(ctx, record.Ref{Class: "Page", ID: 1})
	require.NoError(t, err)
	_, ok := rec.Relation("Parent")
	assert.True(t, ok)
}
