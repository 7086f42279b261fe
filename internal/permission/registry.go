package permission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/validator"
)

// ErrInvalidEntry is returned when a registry entry fails validation.
var ErrInvalidEntry = errors.New("invalid permission entry")

// Rule is the authorization policy of an entry: RoleListRule or PredicateRule.
type Rule interface {
	kind() string
}

// RoleListRule allows callers whose role name is listed.
type RoleListRule struct {
	Roles []model.RoleName
}

// PredicateRule evaluates Check. Callers whose role is listed in Roles are
// allowed before Check is invoked.
type PredicateRule struct {
	Name  string
	Roles []model.RoleName
	Check Predicate
}

func (RoleListRule) kind() string  { return "roles" }
func (PredicateRule) kind() string { return "predicate" }

// RuleKind returns "roles" or "predicate" for r.
func RuleKind(r Rule) string {
	if r == nil {
		return ""
	}
	return r.kind()
}

// Entry binds an HTTP method and a route template to a Rule.
type Entry struct {
	Group       string `json:"group" validate:"required"`
	Operation   string `json:"operation" validate:"required"`
	FeatureName string `json:"feature" validate:"required"`
	Description string `json:"description"`
	Method      string `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Path        string `json:"path" validate:"required,startswith=/"`
	Rule        Rule   `json:"-" validate:"-"`
}

// Key returns the "group.operation" identifier of the entry.
func (e Entry) Key() string { return e.Group + "." + e.Operation }

// Group is one resource group of the registry. Operations keep their
// declaration order.
type Group struct {
	Name       string
	Operations []Entry
}

type compiledEntry struct {
	entry    Entry
	template *Template
}

// Registry is the immutable, ordered permission table. Templates are
// compiled at construction; Match never compiles. Safe for concurrent use.
type Registry struct {
	entries []compiledEntry
	byKey   map[string]int
	byRoute map[string]string
}

// NewRegistry validates and compiles groups in order. Registry order is the
// tie-breaker between equally scored entries.
func NewRegistry(groups []Group) (*Registry, error) {
	r := &Registry{byKey: make(map[string]int), byRoute: make(map[string]string)}
	for _, g := range groups {
		for _, e := range g.Operations {
			if e.Group == "" {
				e.Group = g.Name
			}
			if err := r.add(e); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (r *Registry) add(e Entry) error {
	e.Method = strings.ToUpper(e.Method)
	if err := validator.Struct(e); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidEntry, e.Key(), err)
	}
	if err := validateRule(e.Rule); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidEntry, e.Key(), err)
	}
	if _, dup := r.byKey[e.Key()]; dup {
		return fmt.Errorf("%w %s: duplicate key", ErrInvalidEntry, e.Key())
	}
	// A second entry for the same route could never win a scan.
	route := routeKey(e.Method, e.Path)
	if prev, dup := r.byRoute[route]; dup {
		return fmt.Errorf("%w %s: %s is already registered by %s", ErrInvalidEntry, e.Key(), route, prev)
	}

	tmpl, err := CompileTemplate(e.Path)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidEntry, e.Key(), err)
	}

	r.byKey[e.Key()] = len(r.entries)
	r.byRoute[route] = e.Key()
	r.entries = append(r.entries, compiledEntry{entry: e, template: tmpl})
	return nil
}

func validateRule(rule Rule) error {
	switch rl := rule.(type) {
	case RoleListRule:
		if len(rl.Roles) == 0 {
			return errors.New("role list is empty")
		}
		return validateRoleNames(rl.Roles)
	case PredicateRule:
		if rl.Check == nil {
			return fmt.Errorf("predicate %q has no check", rl.Name)
		}
		return validateRoleNames(rl.Roles)
	case nil:
		return errors.New("rule is required")
	default:
		return fmt.Errorf("unsupported rule %T", rule)
	}
}

func validateRoleNames(names []model.RoleName) error {
	for _, n := range names {
		if !n.Valid() {
			return fmt.Errorf("unknown role %q", n)
		}
	}
	return nil
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns a copy of all entries in registry order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, ce := range r.entries {
		out[i] = ce.entry
	}
	return out
}

// Lookup returns the entry registered under group and operation.
func (r *Registry) Lookup(group, operation string) (Entry, bool) {
	i, ok := r.byKey[group+"."+operation]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i].entry, true
}

// Match is the result of a registry scan.
type Match struct {
	Entry    Entry
	Template *Template
	Score    int
	// AnyMethod is set when the entry was found by the method-agnostic
	// fallback scan.
	AnyMethod bool
}

// Params returns the template parameters of the matched path.
func (m Match) Params(path string) map[string]string {
	if m.Template == nil {
		return nil
	}
	return m.Template.Params(path)
}

// Match finds the best scoring entry for method and path. Entries with the
// request's method are scanned first; if none scores above zero, every entry
// is scanned regardless of method. Some legacy routes were registered under
// the wrong method and rely on this fallback. Ties go to the earlier entry.
func (r *Registry) Match(method, path string) (Match, bool) {
	best, score := r.scan(path, func(e *Entry) bool {
		return strings.EqualFold(e.Method, method)
	})
	anyMethod := false
	if best < 0 {
		best, score = r.scan(path, func(*Entry) bool { return true })
		anyMethod = true
	}
	if best < 0 {
		return Match{}, false
	}

	ce := r.entries[best]
	return Match{
		Entry:     ce.entry,
		Template:  ce.template,
		Score:     score,
		AnyMethod: anyMethod,
	}, true
}

func (r *Registry) scan(path string, include func(*Entry) bool) (int, int) {
	best, bestScore := -1, 0
	for i := range r.entries {
		ce := &r.entries[i]
		if !include(&ce.entry) {
			continue
		}
		if s := ce.template.Score(path); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore
}
