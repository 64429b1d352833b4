// Package fieldconfig turns a class's raw field configuration into the
// ordered, typed list of index fields its records are indexed with.
//
// Raw configuration is YAML: a comma-separated scalar ("Title,Content"),
// a sequence of names, or a mapping of source field to settings:
//
//	Title: text
//	Author.Name:
//	  name: AuthorName
//	  type: unstored
//	  filter: trim
//	  store_empty: false
//
// The identity fields ID, ClassName and LastEdited are always present and
// come first. ID is always indexed as ObjectID.
package fieldconfig

import (
	"bytes"
	"strconv"
	"strings"
)

// FieldSpec describes how one source field is indexed.
type FieldSpec struct {
	// Source is a field name or dotted relation path ("Author.Name").
	Source string
	// Name is the index field name.
	Name string
	// Kind is the storage kind.
	Kind Kind
	// Filter, if set, is applied to the resolved value.
	Filter Filter
	// FilterName names Filter in the filter registry.
	FilterName string
	// StoreEmpty emits the field even when its value is empty.
	StoreEmpty bool
}

// IsRelationPath reports whether Source traverses a relation.
func (f FieldSpec) IsRelationPath() bool {
	return strings.Contains(f.Source, ".")
}

// Identity reports whether the field is one of the fixed identity fields
// (ID, ClassName). Identity fields are emitted even when empty.
func (f FieldSpec) Identity() bool {
	return isIdentity(f.Source)
}

// Apply runs the field's filter over v, if it has one.
func (f FieldSpec) Apply(v string) string {
	if f.Filter == nil {
		return v
	}
	return f.Filter(v)
}

// ClassFieldConfig is the resolved field list for one class. It is never
// empty and never modified after resolution.
type ClassFieldConfig struct {
	Class  string
	Fields []FieldSpec
}

// Field returns the FieldSpec whose output name is name.
func (c *ClassFieldConfig) Field(name string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// HasOutput reports whether any field is indexed under name.
func (c *ClassFieldConfig) HasOutput(name string) bool {
	_, ok := c.Field(name)
	return ok
}

// Names returns the output names in field order.
func (c *ClassFieldConfig) Names() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// Fingerprint returns a stable byte encoding of the config. Two configs
// resolved from identical input have identical fingerprints.
func (c *ClassFieldConfig) Fingerprint() []byte {
	var b bytes.Buffer
	b.WriteString(c.Class)
	b.WriteByte('\n')
	for _, f := range c.Fields {
		b.WriteString(f.Source)
		b.WriteByte('\t')
		b.WriteString(f.Name)
		b.WriteByte('\t')
		b.WriteString(f.Kind.String())
		b.WriteByte('\t')
		b.WriteString(f.FilterName)
		b.WriteByte('\t')
		b.WriteString(strconv.FormatBool(f.StoreEmpty))
		b.WriteByte('\n')
	}
	return b.Bytes()
}
