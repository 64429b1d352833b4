package fieldconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

func mustRaw(t *testing.T, text string) *yaml.Node {
	t.Helper()
	n, err := ParseRaw(text)
	require.NoError(t, err)
	return n
}

func TestResolveList_ExtrasFirstThenDeclared(t *testing.T) {
	// Given: the default SiteTree column list
	r := NewResolver()

	// When: resolving it
	cfg, err := r.ResolveList("Page", DefaultColumns["SiteTree"])

	// Then: extras come first and ID is indexed as ObjectID
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ObjectID", "ClassName", "LastEdited",
		"Title", "MenuTitle", "Content", "MetaTitle", "MetaDescription", "MetaKeywords",
	}, cfg.Names())
}

func TestResolveList_DefaultKinds(t *testing.T) {
	cfg, err := NewResolver().ResolveList("Page", "Title,MenuTitle,MetaKeywords,Created,Author.Name")
	require.NoError(t, err)

	kinds := map[string]Kind{}
	for _, f := range cfg.Fields {
		kinds[f.Name] = f.Kind
	}
	assert.Equal(t, Keyword, kinds["ObjectID"])
	assert.Equal(t, Keyword, kinds["ClassName"])
	assert.Equal(t, UnIndexed, kinds["LastEdited"])
	assert.Equal(t, Text, kinds["Title"])
	assert.Equal(t, UnStored, kinds["MenuTitle"])
	assert.Equal(t, UnStored, kinds["MetaKeywords"])
	assert.Equal(t, UnIndexed, kinds["Created"])
	assert.Equal(t, Text, kinds["Author.Name"])
}

func TestResolve_EmptyConfigStillHasExtras(t *testing.T) {
	for name, raw := range map[string]*yaml.Node{
		"nil":        nil,
		"null":       mustRaw(t, "~"),
		"empty list": mustRaw(t, `""`),
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := NewResolver().Resolve("Member", raw)
			require.NoError(t, err)
			assert.Equal(t, []string{"ObjectID", "ClassName", "LastEdited"}, cfg.Names())
		})
	}
}

func TestResolve_StructuredMapping(t *testing.T) {
	// Given: a structured config with names, kinds, and filters
	raw := mustRaw(t, `
Title: keyword
Content:
  filter: strip_tags
Author.Name:
  name: AuthorName
  type: unstored
  store_empty: true
`)

	// When
	cfg, err := NewResolver().Resolve("Article", raw)

	// Then: declaration order is kept and settings applied
	require.NoError(t, err)
	assert.Equal(t, []string{"ObjectID", "ClassName", "LastEdited", "Title", "Content", "AuthorName"}, cfg.Names())

	title, _ := cfg.Field("Title")
	assert.Equal(t, Keyword, title.Kind)

	content, _ := cfg.Field("Content")
	assert.Equal(t, "strip_tags", content.FilterName)
	assert.Equal(t, "hello world", content.Apply("<p>hello <b>world</b></p>"))

	author, ok := cfg.Field("AuthorName")
	require.True(t, ok)
	assert.Equal(t, "Author.Name", author.Source)
	assert.Equal(t, UnStored, author.Kind)
	assert.True(t, author.StoreEmpty)
	assert.True(t, author.IsRelationPath())
}

func TestResolve_Sequence(t *testing.T) {
	raw := mustRaw(t, `
- Title
- Summary: {type: unindexed}
`)
	cfg, err := NewResolver().Resolve("Article", raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"ObjectID", "ClassName", "LastEdited", "Title", "Summary"}, cfg.Names())
	summary, _ := cfg.Field("Summary")
	assert.Equal(t, UnIndexed, summary.Kind)
}

func TestResolve_Deterministic(t *testing.T) {
	// Given: the same raw input resolved by two independent resolvers
	text := "Title: text\nContent: {filter: trim}\nTags.Title: {name: Tags}\n"

	a, err := NewResolver().Resolve("Page", mustRaw(t, text))
	require.NoError(t, err)
	b, err := NewResolver().Resolve("Page", mustRaw(t, text))
	require.NoError(t, err)

	// Then: the mappings are byte-identical
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestResolve_CachedPerClass(t *testing.T) {
	r := NewResolver()
	first, err := r.ResolveList("Page", "Title")
	require.NoError(t, err)

	second, err := r.ResolveList("Page", "Title,Content")
	require.NoError(t, err)

	assert.Same(t, first, second)
	got, ok := r.Lookup("Page")
	assert.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, []string{"Page"}, r.Classes())

	_, ok = r.Lookup("Unknown")
	assert.False(t, ok)
}

func TestResolve_IdentityFieldIsAlwaysObjectID(t *testing.T) {
	// Given: a config trying to rename and retype ID
	raw := mustRaw(t, "ID: {name: Identifier, type: text, filter: trim}\nTitle:\n")

	// When
	cfg, err := NewResolver().Resolve("Page", raw)

	// Then: the name, kind and value stay fixed
	require.NoError(t, err)
	id := cfg.Fields[0]
	assert.Equal(t, "ID", id.Source)
	assert.Equal(t, ObjectID, id.Name)
	assert.Equal(t, Keyword, id.Kind)
	assert.Empty(t, id.FilterName)
	assert.Nil(t, id.Filter)
	assert.Len(t, cfg.Fields, 4)
}

func TestResolve_FilterOnClassNameIgnored(t *testing.T) {
	cfg, err := NewResolver().Resolve("Page", mustRaw(t, "ClassName: {filter: lowercase}\nTitle:\n"))

	require.NoError(t, err)
	spec, ok := cfg.Field(record.FieldClassName)
	require.True(t, ok)
	assert.Nil(t, spec.Filter)
	assert.Equal(t, "Page", spec.Apply("Page"))
}

func TestResolve_NonIdentityExtraCanBeOverridden(t *testing.T) {
	cfg, err := NewResolver().Resolve("Page", mustRaw(t, "LastEdited: text\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ObjectID", "ClassName", "LastEdited"}, cfg.Names())
	assert.Equal(t, Text, cfg.Fields[2].Kind)
}

func TestResolve_ObjectIDConflict(t *testing.T) {
	// Given: another field claiming the reserved output name
	raw := mustRaw(t, "Code: {name: ObjectID}\n")

	// When
	_, err := NewResolver().Resolve("Page", raw)

	// Then: a config error
	require.Error(t, err)
	assert.True(t, serrors.IsConfig(err))
	assert.Equal(t, serrors.ErrCodeReservedField, serrors.GetCode(err))
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", "Title: {type: fulltext}"},
		{"unknown filter", "Title: {filter: rot13}"},
		{"unknown setting", "Title: {weight: 3}"},
		{"bad store_empty", "Title: {store_empty: sometimes}"},
		{"nested settings", "Title: {name: [a, b]}"},
		{"settings not mapping", "Title: [a, b]"},
		{"empty segment", "Author..Name: text"},
		{"duplicate output", "Title: text\nHeading: {name: Title}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver().Resolve("Page", mustRaw(t, tt.raw))
			require.Error(t, err)
			assert.True(t, serrors.IsConfig(err), "want config error, got %v", err)
		})
	}
}

func TestResolve_ErrorsAreNotCached(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve("Page", mustRaw(t, "Title: {type: nope}"))
	require.Error(t, err)

	_, ok := r.Lookup("Page")
	assert.False(t, ok)

	_, err = r.ResolveList("Page", "Title")
	assert.NoError(t, err)
}

func TestResolve_CustomFilter(t *testing.T) {
	filters := NewFilters()
	require.NoError(t, filters.Register("shout", func(s string) string { return s + "!" }))

	cfg, err := NewResolver(WithFilters(filters)).Resolve("Page", mustRaw(t, "Title: {filter: shout}"))
	require.NoError(t, err)
	title, _ := cfg.Field("Title")
	assert.Equal(t, "hi!", title.Apply("hi"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" UnStored ")
	require.NoError(t, err)
	assert.Equal(t, UnStored, k)

	_, err = ParseKind("binary")
	assert.Error(t, err)

	assert.True(t, Keyword.Indexed())
	assert.True(t, Keyword.Stored())
	assert.False(t, UnIndexed.Indexed())
	assert.False(t, UnStored.Stored())
}

func TestFilters(t *testing.T) {
	f := NewFilters()
	assert.Equal(t, []string{"collapse_space", "lowercase", "strip_tags", "trim"}, f.Names())
	assert.Equal(t, "a b c", CollapseSpace("  a\n b\t\tc "))
	assert.Equal(t, "Fish & Chips", StripTags("<em>Fish</em> &amp; Chips"))
	assert.Equal(t, "plain", StripTags("plain"))
	assert.Error(t, f.Register("", nil))
}
