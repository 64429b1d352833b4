package fieldconfig

import "github.com/Aman-CERP/sitesearch/internal/record"

// ObjectID is the output name of the identity field. The engine keeps its
// own "id", so record identifiers never use that name.
const ObjectID = "ObjectID"

// BodyField holds text extracted from a record's backing file.
const BodyField = "body"

// extraFields are indexed for every class, ahead of declared fields.
var extraFields = []string{record.FieldID, record.FieldClassName, record.FieldLastEdited}

var (
	unstoredFields  = map[string]bool{"MenuTitle": true, "MetaTitle": true, "MetaDescription": true, "MetaKeywords": true}
	unindexedFields = map[string]bool{record.FieldLastEdited: true, record.FieldCreated: true}
	keywordFields   = map[string]bool{record.FieldID: true, record.FieldClassName: true}
)

// DefaultColumns are the field lists used for the two well-known classes
// when they are enabled without an explicit field list.
var DefaultColumns = map[string]string{
	"SiteTree": "Title,MenuTitle,Content,MetaTitle,MetaDescription,MetaKeywords",
	"File":     "Filename,Title,Content",
}

// ExtraFields returns the source names merged into every class config.
func ExtraFields() []string {
	out := make([]string, len(extraFields))
	copy(out, extraFields)
	return out
}

// DefaultKind returns the storage kind used when a field does not name one.
func DefaultKind(source string) Kind {
	switch {
	case keywordFields[source]:
		return Keyword
	case unindexedFields[source]:
		return UnIndexed
	case unstoredFields[source]:
		return UnStored
	default:
		return Text
	}
}

// isIdentity reports whether source is a field whose name and kind are fixed.
func isIdentity(source string) bool {
	return keywordFields[source]
}

// outputName returns the index field name for a source with no explicit name.
func outputName(source string) string {
	if source == record.FieldID {
		return ObjectID
	}
	return source
}
