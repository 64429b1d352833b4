// Package document builds index documents from records.
package document

import (
	"github.com/Aman-CERP/sitesearch/internal/fieldconfig"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

// LinkField is the stored-only field holding a record's canonical URL.
const LinkField = "Link"

// Field is one typed value of an index document.
type Field struct {
	Name  string
	Kind  fieldconfig.Kind
	Value string
}

// Document is the ordered set of fields indexed for one record.
type Document struct {
	Ref    record.Ref
	Fields []Field
}

// Get returns the first value stored under name.
func (d *Document) Get(name string) (string, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (d *Document) Names() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}
