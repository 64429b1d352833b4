package record

// Static is an in-memory Record. Hosts without an ORM can build records
// directly; it is also what the package tests use.
type Static struct {
	Class string
	ID    int64

	// Attrs holds stored attribute values.
	Attrs map[string]string
	// Accessors are consulted before Attrs.
	Accessors map[string]func() string
	// Relations maps relation names to their content.
	Relations map[string]Relation

	// File is the full path of the backing file, if any.
	File string
	// Folder marks a container record.
	Folder bool
	// URL is the canonical link, if any.
	URL string
	// Draft marks a record that is not published.
	Draft bool
}

// Ref implements Record.
func (s *Static) Ref() Ref {
	return Ref{Class: s.Class, ID: s.ID}
}

// TryInvoke implements Record.
func (s *Static) TryInvoke(name string) (string, bool) {
	fn, ok := s.Accessors[name]
	if !ok {
		return "", false
	}
	return fn(), true
}

// TryRead implements Record. ID and ClassName are always readable.
func (s *Static) TryRead(name string) (string, bool) {
	switch name {
	case FieldID:
		return s.Ref().IDString(), true
	case FieldClassName:
		return s.Class, true
	}
	v, ok := s.Attrs[name]
	return v, ok
}

// Relation implements Record.
func (s *Static) Relation(name string) (Relation, bool) {
	rel, ok := s.Relations[name]
	return rel, ok
}

// FilePath implements FileBacked.
func (s *Static) FilePath() string { return s.File }

// IsFolder implements FileBacked.
func (s *Static) IsFolder() bool { return s.Folder }

// Link implements Linker.
func (s *Static) Link() string { return s.URL }

// IsPublished implements Publishable.
func (s *Static) IsPublished() bool { return !s.Draft }

// One builds a has-one relation; a nil target is an absent relation.
func One(target Record) Relation {
	if target == nil {
		return Relation{Kind: HasOne}
	}
	return Relation{Kind: HasOne, Records: []Record{target}}
}

// Many builds a has-many relation in the given order.
func Many(targets ...Record) Relation {
	return Relation{Kind: HasMany, Records: targets}
}

var (
	_ Record      = (*Static)(nil)
	_ FileBacked  = (*Static)(nil)
	_ Linker      = (*Static)(nil)
	_ Publishable = (*Static)(nil)
)
