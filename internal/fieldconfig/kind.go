package fieldconfig

import (
	"fmt"
	"strings"
)

// Kind is how the index engine treats a field value.
type Kind int

const (
	// Text is tokenized, searchable and stored in full (titles, authors).
	Text Kind = iota
	// Keyword is searchable as one exact token and stored (IDs, class tags).
	Keyword
	// UnStored is tokenized and searchable but not stored (teasers, meta).
	UnStored
	// UnIndexed is stored with the document but not searchable (timestamps, URLs).
	UnIndexed
)

var kindNames = map[Kind]string{
	Text:      "text",
	Keyword:   "keyword",
	UnStored:  "unstored",
	UnIndexed: "unindexed",
}

// String returns the lower-case configuration name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Indexed reports whether values of this kind are searchable.
func (k Kind) Indexed() bool {
	return k != UnIndexed
}

// Stored reports whether values of this kind are kept with the document.
func (k Kind) Stored() bool {
	return k != UnStored
}

// ParseKind parses a configuration kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return Text, fmt.Errorf("unknown storage type %q (want keyword, text, unstored or unindexed)", s)
}
