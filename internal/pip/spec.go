package pip

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errEmptySpec          = errors.New("package spec is empty")
	errSpecWhitespace     = errors.New("package spec must not contain whitespace")
	errEmptyName          = errors.New("package spec has no name")
	errUnterminatedExtras = errors.New("extras bracket is not terminated")
	errEmptyExtra         = errors.New("extras list contains an empty entry")
)

// Spec is a parsed Named Package Spec: a package name, an optional bracketed
// extras list and an optional trailing version constraint. The original
// string is preserved and is what gets handed to pip; parsing exists only to
// reject specs pip would choke on.
type Spec struct {
	// Name is the bare package name.
	Name string
	// Extras are the feature selectors from the bracketed list, if any.
	Extras []string
	// Constraint is the raw version constraint following the name or
	// extras (e.g. "==22.3"), empty when unconstrained.
	Constraint string

	raw string
}

// ParseSpec validates a package spec string like "python-telegram-bot[webhooks]==22.3".
func ParseSpec(s string) (*Spec, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, errEmptySpec
	}

	if strings.ContainsAny(raw, " \t") {
		return nil, fmt.Errorf("%q: %w", raw, errSpecWhitespace)
	}

	spec := &Spec{raw: raw}

	rest := raw
	if open := strings.IndexByte(rest, '['); open >= 0 {
		closing := strings.IndexByte(rest, ']')
		if closing < open {
			return nil, fmt.Errorf("%q: %w", raw, errUnterminatedExtras)
		}

		spec.Name = rest[:open]

		for _, extra := range strings.Split(rest[open+1:closing], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				return nil, fmt.Errorf("%q: %w", raw, errEmptyExtra)
			}

			spec.Extras = append(spec.Extras, extra)
		}

		spec.Constraint = rest[closing+1:]
	} else if cut := strings.IndexAny(rest, "=<>!~"); cut >= 0 {
		spec.Name = rest[:cut]
		spec.Constraint = rest[cut:]
	} else {
		spec.Name = rest
	}

	if spec.Name == "" {
		return nil, fmt.Errorf("%q: %w", raw, errEmptyName)
	}

	return spec, nil
}

// String returns the spec exactly as the user wrote it.
func (s *Spec) String() string {
	return s.raw
}

// HasExtras reports whether the spec requests optional feature sets.
func (s *Spec) HasExtras() bool {
	return len(s.Extras) > 0
}
