package recordstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/record"
)

// Seed is a YAML description of classes, relations and records to import.
//
//	classes:
//	  - {name: SiteTree}
//	  - {name: Page, parent: SiteTree}
//	relations:
//	  - {class: SiteTree, name: Parent, kind: has_one}
//	records:
//	  - class: Page
//	    id: 2
//	    published: true
//	    link: /about/
//	    attrs: {Title: About us}
//	    relations: {Parent: [Page#1]}
type Seed struct {
	Classes []struct {
		Name   string `yaml:"name"`
		Parent string `yaml:"parent"`
	} `yaml:"classes"`
	Relations []struct {
		Class string `yaml:"class"`
		Name  string `yaml:"name"`
		Kind  string `yaml:"kind"`
	} `yaml:"relations"`
	Records []SeedRecord `yaml:"records"`
}

// SeedRecord is one record of a Seed.
type SeedRecord struct {
	Class     string              `yaml:"class"`
	ID        int64               `yaml:"id"`
	Published *bool               `yaml:"published"`
	File      string              `yaml:"file"`
	Folder    bool                `yaml:"folder"`
	Link      string              `yaml:"link"`
	Attrs     map[string]any      `yaml:"attrs"`
	Relations map[string][]string `yaml:"relations"`
}

// ReadSeed decodes a seed document.
func ReadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return nil, serrors.New(serrors.ErrCodeInvalidInput, "invalid seed file", err)
	}
	return &seed, nil
}

// Import writes seed into the store and returns the refs of the records
// written, in seed order.
func (s *Store) Import(ctx context.Context, seed *Seed) ([]record.Ref, error) {
	for _, c := range seed.Classes {
		if err := s.DefineClass(ctx, c.Name, c.Parent); err != nil {
			return nil, err
		}
	}
	for _, rel := range seed.Relations {
		kind, err := parseRelationKind(rel.Kind)
		if err != nil {
			return nil, serrors.New(serrors.ErrCodeInvalidInput, "invalid relation kind", err).
				WithDetail("relation", rel.Class+"."+rel.Name)
		}
		if err := s.DefineRelation(ctx, rel.Class, rel.Name, kind); err != nil {
			return nil, err
		}
	}

	refs := make([]record.Ref, 0, len(seed.Records))
	for _, sr := range seed.Records {
		ref := record.Ref{Class: sr.Class, ID: sr.ID}
		err := s.Put(ctx, Data{
			Class:     sr.Class,
			ID:        sr.ID,
			Attrs:     sr.Attrs,
			Published: sr.Published,
			File:      sr.File,
			Folder:    sr.Folder,
			Link:      sr.Link,
		})
		if err != nil {
			return refs, err
		}
		for name, targets := range sr.Relations {
			tr, err := parseTargets(targets)
			if err != nil {
				return refs, err.WithDetail("record", ref.String())
			}
			if err := s.Relate(ctx, ref, name, tr...); err != nil {
				return refs, err
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParseRef parses "Class#ID".
func ParseRef(s string) (record.Ref, bool) {
	class, id, ok := strings.Cut(s, "#")
	if !ok {
		return record.Ref{}, false
	}
	return record.ParseRef(class, id)
}

func parseTargets(targets []string) ([]record.Ref, *serrors.SearchError) {
	out := make([]record.Ref, 0, len(targets))
	for _, t := range targets {
		ref, ok := ParseRef(t)
		if !ok {
			return nil, serrors.New(serrors.ErrCodeInvalidInput, fmt.Sprintf("invalid relation target %q", t), nil).
				WithSuggestion("Write targets as Class#ID")
		}
		out = append(out, ref)
	}
	return out, nil
}
