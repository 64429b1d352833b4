package recordstore

import (
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/Aman-CERP/sitesearch/internal/record"
)

// Record is a record loaded from a Store.
type Record struct {
	store       *Store
	ref         record.Ref
	attrs       map[string]any
	publishable bool
	published   bool
	file        string
	folder      bool
	link        string
}

var (
	_ record.Record      = (*Record)(nil)
	_ record.FileBacked  = (*Record)(nil)
	_ record.Linker      = (*Record)(nil)
	_ record.Publishable = (*Record)(nil)
)

// Ref implements record.Record.
func (r *Record) Ref() record.Ref { return r.ref }

// TryInvoke implements record.Record using the accessors registered for
// the record's class or its ancestors.
func (r *Record) TryInvoke(name string) (string, bool) {
	fn, ok := r.store.accessor(r.ref.Class, name)
	if !ok {
		return "", false
	}
	return fn(r), true
}

// TryRead implements record.Record. ID and ClassName are always readable.
// Attribute values are coerced to strings; structured values read as JSON.
func (r *Record) TryRead(name string) (string, bool) {
	switch name {
	case record.FieldID:
		return r.ref.IDString(), true
	case record.FieldClassName:
		return r.ref.Class, true
	}
	v, ok := r.attrs[name]
	if !ok {
		return "", false
	}
	return stringify(v), true
}

// Attr returns a raw attribute value.
func (r *Record) Attr(name string) (any, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

// Relation implements record.Record.
func (r *Record) Relation(name string) (record.Relation, bool) {
	return r.store.relation(r.ref, name)
}

// FilePath implements record.FileBacked.
func (r *Record) FilePath() string { return r.file }

// IsFolder implements record.FileBacked.
func (r *Record) IsFolder() bool { return r.folder }

// Link implements record.Linker.
func (r *Record) Link() string { return r.link }

// IsPublished implements record.Publishable. Records stored without a
// published flag are always published.
func (r *Record) IsPublished() bool {
	return !r.publishable || r.published
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
