package event

import (
	"strings"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

type matchKind int

const (
	matchExact matchKind = iota
	matchPrefix
	matchSuffix
	matchContains
	matchAll
)

// Pattern is a field-name pattern with an optional leading and/or trailing '*'.
// "Cluster_*" matches by prefix, "*_pt" by suffix, "*pt*" by substring and "*"
// matches everything. A '*' anywhere else is rejected.
type Pattern struct {
	raw  string
	core string
	kind matchKind
}

// ParsePattern validates and compiles a pattern.
func ParsePattern(s string) (Pattern, error) {
	if s == "" {
		return Pattern{}, errors.NewValidationError("pattern", "must not be empty", s)
	}
	if s == "*" || s == "**" {
		return Pattern{raw: s, kind: matchAll}, nil
	}
	lead := strings.HasPrefix(s, "*")
	trail := strings.HasSuffix(s, "*")
	core := strings.TrimSuffix(strings.TrimPrefix(s, "*"), "*")
	if strings.Contains(core, "*") {
		return Pattern{}, errors.NewValidationError("pattern", "'*' is only allowed at the start or end", s)
	}

	p := Pattern{raw: s, core: core}
	switch {
	case lead && trail:
		p.kind = matchContains
	case lead:
		p.kind = matchSuffix
	case trail:
		p.kind = matchPrefix
	default:
		p.kind = matchExact
	}
	return p, nil
}

// Match reports whether name matches the pattern.
func (p Pattern) Match(name string) bool {
	switch p.kind {
	case matchAll:
		return true
	case matchPrefix:
		return strings.HasPrefix(name, p.core)
	case matchSuffix:
		return strings.HasSuffix(name, p.core)
	case matchContains:
		return strings.Contains(name, p.core)
	default:
		return name == p.core
	}
}

func (p Pattern) String() string {
	return p.raw
}

// Resolve applies patterns to a catalog fetched once from the source and
// returns the concrete fields in pattern order, then catalog order, without
// duplicates. A pattern that matches nothing is a configuration error.
func Resolve(catalog []FieldInfo, patterns []string) ([]FieldInfo, error) {
	seen := make(map[string]bool)
	var out []FieldInfo
	for _, raw := range patterns {
		p, err := ParsePattern(raw)
		if err != nil {
			return nil, err
		}
		matched := false
		for _, f := range catalog {
			if !p.Match(f.Name) {
				continue
			}
			matched = true
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f)
		}
		if !matched {
			return nil, errors.NewMissingFieldError("Resolve", raw, "source catalog")
		}
	}
	return out, nil
}
