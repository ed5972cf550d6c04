package event

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// CollectionSep joins a collection name and an attribute name into a source field name.
const CollectionSep = "_"

// Collection declares a jagged object collection and the attributes to read, in order.
type Collection struct {
	Name       string
	Attributes []string
}

// FieldName returns the source field holding attribute attr.
func (c Collection) FieldName(attr string) string {
	return c.Name + CollectionSep + attr
}

// Schema is the explicit, resolved description of the fields a conversion reads.
type Schema struct {
	Scalars     []string
	Collections []Collection
	kinds       map[string]FieldKind
}

// NewSchema checks the declared scalars and collections against the catalog.
// Every declared field must exist with the right kind; nothing is skipped.
func NewSchema(catalog []FieldInfo, scalars []string, collections []Collection) (*Schema, error) {
	byName := make(map[string]FieldKind, len(catalog))
	for _, f := range catalog {
		byName[f.Name] = f.Kind
	}

	s := &Schema{kinds: make(map[string]FieldKind)}
	for _, name := range scalars {
		if _, dup := s.kinds[name]; dup {
			continue
		}
		kind, ok := byName[name]
		if !ok {
			return nil, errors.NewMissingFieldError("NewSchema", name, "source catalog")
		}
		if kind != KindScalar {
			return nil, errors.NewValidationError(name, "declared as scalar but source field is "+kind.String(), name)
		}
		s.kinds[name] = KindScalar
		s.Scalars = append(s.Scalars, name)
	}

	seenColl := make(map[string]bool)
	for _, c := range collections {
		if c.Name == "" {
			return nil, errors.NewValidationError("collection", "name must not be empty", c)
		}
		if len(c.Attributes) == 0 {
			return nil, errors.NewValidationError(c.Name, "collection needs at least one attribute", c.Attributes)
		}
		attrSeen := make(map[string]bool)
		for _, a := range c.Attributes {
			if attrSeen[a] {
				return nil, errors.NewValidationError(c.Name, "duplicate attribute", a)
			}
			attrSeen[a] = true
			field := c.FieldName(a)
			kind, ok := byName[field]
			if !ok {
				return nil, errors.NewMissingFieldError("NewSchema", field, "collection "+c.Name)
			}
			if kind != KindJagged {
				return nil, errors.NewValidationError(field, "declared as collection attribute but source field is "+kind.String(), field)
			}
			s.kinds[field] = KindJagged
		}
		if !seenColl[c.Name] {
			seenColl[c.Name] = true
			s.Collections = append(s.Collections, Collection{Name: c.Name, Attributes: append([]string(nil), c.Attributes...)})
		}
	}
	return s, nil
}

// Fields returns the concrete source fields to read, scalars first.
func (s *Schema) Fields() []string {
	out := append([]string(nil), s.Scalars...)
	seen := make(map[string]bool, len(out))
	for _, n := range out {
		seen[n] = true
	}
	for _, c := range s.Collections {
		for _, a := range c.Attributes {
			f := c.FieldName(a)
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// Kind reports the kind of a resolved field.
func (s *Schema) Kind(field string) (FieldKind, bool) {
	k, ok := s.kinds[field]
	return k, ok
}

// CollectionAttributes returns the attributes of collection name found in the
// catalog, in catalog order: every jagged field named name + CollectionSep + attr.
func CollectionAttributes(fields []FieldInfo, name string) []string {
	prefix := name + CollectionSep
	var attrs []string
	for _, f := range fields {
		if f.Kind != KindJagged {
			continue
		}
		if attr, ok := strings.CutPrefix(f.Name, prefix); ok && attr != "" {
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(scalars=%v, collections=%v)", s.Scalars, s.Collections)
}
