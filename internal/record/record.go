// Package record defines the capability interfaces a host record store
// implements, and resolves dotted relation paths against them.
package record

import (
	"fmt"
	"strconv"
)

// Well-known field names shared by every record class.
const (
	FieldID         = "ID"
	FieldClassName  = "ClassName"
	FieldLastEdited = "LastEdited"
	FieldCreated    = "Created"
	FieldLink       = "Link"
)

// Ref uniquely identifies a source record and is the index delete key.
type Ref struct {
	Class string `json:"class"`
	ID    int64  `json:"id"`
}

// String returns "Class#ID".
func (r Ref) String() string {
	return fmt.Sprintf("%s#%d", r.Class, r.ID)
}

// IDString returns the identifier as stored in the ObjectID keyword field.
func (r Ref) IDString() string {
	return strconv.FormatInt(r.ID, 10)
}

// IsZero reports whether the ref points at nothing (the empty placeholder).
func (r Ref) IsZero() bool {
	return r.Class == "" && r.ID == 0
}

// RelationKind distinguishes single-valued from multi-valued relations.
type RelationKind int

const (
	// HasOne is a 0-or-1 relation.
	HasOne RelationKind = iota
	// HasMany is an ordered one-to-many relation.
	HasMany
	// ManyMany is a many-to-many relation, enumerated in store order.
	ManyMany
)

// String returns the relation kind name.
func (k RelationKind) String() string {
	switch k {
	case HasOne:
		return "has_one"
	case HasMany:
		return "has_many"
	case ManyMany:
		return "many_many"
	default:
		return "unknown"
	}
}

// Multi reports whether the relation can hold more than one record.
func (k RelationKind) Multi() bool {
	return k == HasMany || k == ManyMany
}

// Relation is the resolved content of one named relation on a record.
// For HasOne, Records holds zero or one element.
type Relation struct {
	Kind    RelationKind
	Records []Record
}

// Record is the capability interface every indexable record implements.
// The resolver depends only on this, never on concrete record types.
type Record interface {
	// Ref returns the stable (class, identifier) pair.
	Ref() Ref

	// TryInvoke calls a zero-argument accessor; ok is false if none exists.
	TryInvoke(name string) (value string, ok bool)

	// TryRead reads a stored attribute; ok is false if none exists.
	TryRead(name string) (value string, ok bool)

	// Relation returns the named relation; ok is false if the class
	// declares no relation by that name.
	Relation(name string) (rel Relation, ok bool)
}

// FileBacked is implemented by records stored as files on disk.
type FileBacked interface {
	// FilePath returns the full filesystem path of the file.
	FilePath() string
	// IsFolder reports whether the record is a container rather than a leaf file.
	IsFolder() bool
}

// Linker is implemented by records with a canonical URL.
type Linker interface {
	Link() string
}

// Publishable is implemented by classes with a live/published concept.
type Publishable interface {
	IsPublished() bool
}

// Versioned is implemented by records whose class keeps staged versions.
// Only the live version is indexed.
type Versioned interface {
	// IsLiveVersion reports whether this instance is the current live version.
	IsLiveVersion() bool
	// ExistsOnLive reports whether any live version of the record remains.
	ExistsOnLive() bool
}

// empty is the placeholder for an absent has-one target.
type empty struct{}

func (empty) Ref() Ref                         { return Ref{} }
func (empty) TryInvoke(string) (string, bool)  { return "", false }
func (empty) TryRead(string) (string, bool)    { return "", false }
func (empty) Relation(string) (Relation, bool) { return Relation{}, false }

// Empty is the well-defined placeholder returned for a missing related record.
var Empty Record = empty{}

// Hierarchy is implemented by stores whose classes inherit from one another.
// A record is indexed with the configuration of its own class or, failing
// that, of its nearest configured ancestor.
type Hierarchy interface {
	// Ancestors returns the parent classes of class, nearest first.
	Ancestors(class string) []string
}

// ParseRef builds a Ref from a class name and a decimal identifier.
func ParseRef(class, id string) (Ref, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || class == "" {
		return Ref{}, false
	}
	return Ref{Class: class, ID: n}, true
}
