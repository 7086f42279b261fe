package permission

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Match scores. A regex match scores scorePattern minus the number of
// bracket parameters, so literal structure outranks parameters.
const (
	ScoreExact   = 1000
	scorePattern = 100
	ScorePrefix  = 10
)

// ErrInvalidTemplate is returned for malformed route templates.
var ErrInvalidTemplate = errors.New("invalid route template")

// Template is a route template such as /api/forms/[id]/responses compiled
// once into an anchored regular expression.
type Template struct {
	raw    string
	re     *regexp.Regexp
	params []string
}

// CompileTemplate compiles raw, replacing every [name] segment with a
// wildcard that matches one non-empty path segment.
func CompileTemplate(raw string) (*Template, error) {
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("%w: %q must start with '/'", ErrInvalidTemplate, raw)
	}

	var (
		b      strings.Builder
		params []string
		rest   = raw
	)
	b.WriteString("^")
	for {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			if strings.IndexByte(rest, ']') >= 0 {
				return nil, fmt.Errorf("%w: %q has an unmatched ']'", ErrInvalidTemplate, raw)
			}
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}
		if strings.IndexByte(rest[:open], ']') >= 0 {
			return nil, fmt.Errorf("%w: %q has an unmatched ']'", ErrInvalidTemplate, raw)
		}

		end := strings.IndexByte(rest[open:], ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: %q has an unmatched '['", ErrInvalidTemplate, raw)
		}
		name := rest[open+1 : open+end]
		if name == "" || strings.ContainsAny(name, "[/") {
			return nil, fmt.Errorf("%w: %q has a bad parameter %q", ErrInvalidTemplate, raw, name)
		}

		b.WriteString(regexp.QuoteMeta(rest[:open]))
		b.WriteString("([^/]+)")
		params = append(params, name)
		rest = rest[open+end+1:]
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTemplate, raw, err)
	}
	return &Template{raw: raw, re: re, params: params}, nil
}

// MustCompileTemplate is like CompileTemplate but panics on error.
func MustCompileTemplate(raw string) *Template {
	t, err := CompileTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template as written.
func (t *Template) String() string { return t.raw }

// ParamCount returns the number of bracket parameters.
func (t *Template) ParamCount() int { return len(t.params) }

// Score rates how well path matches t. Higher is more specific; 0 means no match.
//   - exact string equality scores ScoreExact
//   - a full pattern match scores 100 minus the parameter count
//   - a path below the template (template + "/...") scores ScorePrefix
func (t *Template) Score(path string) int {
	if path == t.raw {
		return ScoreExact
	}
	if t.re.MatchString(path) {
		return scorePattern - len(t.params)
	}
	if strings.HasPrefix(path, t.raw+"/") {
		return ScorePrefix
	}
	return 0
}

// Params extracts the named parameters from path. It returns nil when path
// does not fully match the template, including prefix-only matches.
func (t *Template) Params(path string) map[string]string {
	m := t.re.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(t.params))
	for i, name := range t.params {
		out[name] = m[i+1]
	}
	return out
}

// Score compiles template and scores path against it. Malformed templates
// never match.
func Score(template, path string) int {
	t, err := CompileTemplate(template)
	if err != nil {
		return 0
	}
	return t.Score(path)
}
