package permission

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/eduportal-backend/internal/model"
)

// OverrideEntry is one entry of the overrides file. Exactly one of Roles
// and Check must be set, unless Check is combined with Roles as a static
// short-circuit.
type OverrideEntry struct {
	Group       string           `yaml:"group"`
	Operation   string           `yaml:"operation"`
	Feature     string           `yaml:"feature"`
	Description string           `yaml:"description"`
	Method      string           `yaml:"method"`
	Path        string           `yaml:"path"`
	Roles       []model.RoleName `yaml:"roles"`
	Check       string           `yaml:"check"`
}

// OverrideFile is the top-level document of the overrides file.
type OverrideFile struct {
	Entries []OverrideEntry `yaml:"entries"`
}

// LoadOverrides reads a YAML overrides file and turns it into one Group per
// distinct group name, in file order. Predicates are resolved by name.
func LoadOverrides(path string, preds *Predicates) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data, preds)
}

// ParseOverrides is LoadOverrides on an in-memory document. Unknown fields
// are rejected.
func ParseOverrides(data []byte, preds *Predicates) ([]Group, error) {
	var f OverrideFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode overrides: %w", err)
	}

	var groups []Group
	index := make(map[string]int)
	for i, oe := range f.Entries {
		rule, err := oe.rule(preds)
		if err != nil {
			return nil, fmt.Errorf("overrides entry %d (%s.%s): %w", i, oe.Group, oe.Operation, err)
		}

		e := Entry{
			Group:       oe.Group,
			Operation:   oe.Operation,
			FeatureName: oe.Feature,
			Description: oe.Description,
			Method:      oe.Method,
			Path:        oe.Path,
			Rule:        rule,
		}
		gi, ok := index[oe.Group]
		if !ok {
			gi = len(groups)
			index[oe.Group] = gi
			groups = append(groups, Group{Name: oe.Group})
		}
		groups[gi].Operations = append(groups[gi].Operations, e)
	}
	return groups, nil
}

func (oe OverrideEntry) rule(preds *Predicates) (Rule, error) {
	if oe.Check == "" {
		if len(oe.Roles) == 0 {
			return nil, errors.New("either roles or check is required")
		}
		return RoleListRule{Roles: oe.Roles}, nil
	}
	if preds == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownPredicate, oe.Check)
	}
	pred, err := preds.ByName(oe.Check)
	if err != nil {
		return nil, err
	}
	return PredicateRule{Name: oe.Check, Roles: oe.Roles, Check: pred}, nil
}

// BuildRegistry assembles the built-in table with the entries of the
// overrides file at overridesPath, if one is configured. See MergeOverrides.
func BuildRegistry(preds *Predicates, overridesPath string) (*Registry, error) {
	groups := DefaultGroups(preds)
	if overridesPath != "" {
		extra, err := LoadOverrides(overridesPath, preds)
		if err != nil {
			return nil, err
		}
		groups = MergeOverrides(groups, extra)
	}
	return NewRegistry(groups)
}

// MergeOverrides applies overrides to base. An override with the same method
// and path as a base entry replaces that entry in place, keeping its position
// in the scan order. Any other override is appended after base.
func MergeOverrides(base, overrides []Group) []Group {
	merged := make([]Group, len(base))
	pos := make(map[string][2]int)
	for gi, g := range base {
		merged[gi] = Group{Name: g.Name, Operations: append([]Entry(nil), g.Operations...)}
		for oi, e := range g.Operations {
			pos[routeKey(e.Method, e.Path)] = [2]int{gi, oi}
		}
	}

	for _, g := range overrides {
		rest := Group{Name: g.Name}
		for _, e := range g.Operations {
			if at, ok := pos[routeKey(e.Method, e.Path)]; ok {
				if e.Group == "" {
					e.Group = g.Name
				}
				merged[at[0]].Operations[at[1]] = e
				continue
			}
			rest.Operations = append(rest.Operations, e)
		}
		if len(rest.Operations) > 0 {
			merged = append(merged, rest)
		}
	}
	return merged
}
