// Command check-access prints which permission entry governs a request and
// how it scored, without touching the database.
//
// Usage:
//
//	check-access [-overrides file.yaml] METHOD PATH
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/stemsi/eduportal-backend/internal/model"
	"github.com/stemsi/eduportal-backend/internal/permission"
)

func main() {
	overrides := flag.String("overrides", os.Getenv("PERMISSION_OVERRIDES_FILE"), "permission overrides file")
	list := flag.Bool("list", false, "print the whole registry and exit")
	flag.Parse()

	registry, err := permission.BuildRegistry(permission.NewPredicates(noFacts{}), *overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if *list {
		for _, e := range registry.Entries() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Method, e.Path, e.Key(), describeRule(e.Rule))
		}
		return
	}

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: check-access [-overrides file] METHOD PATH")
		os.Exit(2)
	}
	method, path := strings.ToUpper(args[0]), args[1]

	m, ok := registry.Match(method, path)
	if !ok {
		fmt.Fprintf(w, "%s %s\tunregistered (allowed)\n", method, path)
		return
	}
	fmt.Fprintf(w, "entry\t%s\n", m.Entry.Key())
	fmt.Fprintf(w, "feature\t%s\n", m.Entry.FeatureName)
	fmt.Fprintf(w, "template\t%s %s\n", m.Entry.Method, m.Entry.Path)
	fmt.Fprintf(w, "score\t%d\n", m.Score)
	fmt.Fprintf(w, "any method\t%t\n", m.AnyMethod)
	fmt.Fprintf(w, "rule\t%s\n", describeRule(m.Entry.Rule))
	for k, v := range m.Params(path) {
		fmt.Fprintf(w, "param %s\t%s\n", k, v)
	}
}

func describeRule(r permission.Rule) string {
	switch rule := r.(type) {
	case permission.RoleListRule:
		return "roles " + joinRoles(rule.Roles)
	case permission.PredicateRule:
		if len(rule.Roles) == 0 {
			return "check " + rule.Name
		}
		return "roles " + joinRoles(rule.Roles) + " then check " + rule.Name
	default:
		return permission.RuleKind(r)
	}
}

func joinRoles(roles []model.RoleName) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

var errOffline = errors.New("check-access does not read facts")

// noFacts satisfies the predicate catalog; predicates are never evaluated here.
type noFacts struct{}

func (noFacts) FormCreatorID(context.Context, string) (string, bool, error) {
	return "", false, errOffline
}
func (noFacts) FormGrant(context.Context, string, string, int) (model.AccessType, bool, error) {
	return "", false, errOffline
}
func (noFacts) TaskCreatorID(context.Context, string) (string, bool, error) {
	return "", false, errOffline
}
func (noFacts) TaskGrant(context.Context, string, string, int) (model.AccessType, bool, error) {
	return "", false, errOffline
}
func (noFacts) StudentRegion(context.Context, string) (string, bool, error) {
	return "", false, errOffline
}
func (noFacts) TeacherHasStudent(context.Context, string, string) (bool, error) {
	return false, errOffline
}
func (noFacts) UserRegion(context.Context, string) (string, error) { return "", errOffline }
func (noFacts) UserRole(context.Context, string) (*model.Role, error) {
	return nil, errOffline
}
