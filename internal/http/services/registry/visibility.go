package registry

import (
	"context"
	"regexp"
	"strings"

	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

var normalizeRE = regexp.MustCompile(`[-_.]+`)

// Normalize applies PEP-503 name normalization: lowercase, runs of
// "-", "_" and "." collapse to a single dash.
func Normalize(name string) string {
	return normalizeRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// CallerLabels returns the union of allowed_labels across the caller's
// roles. Superusers skip label checks entirely so their set is irrelevant.
func CallerLabels(ctx context.Context, users core.UserRepository, u *core.User) (map[string]struct{}, error) {
	roles, err := users.RolesOf(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{})
	for _, r := range roles {
		for _, l := range r.AllowedLabels {
			out[l] = struct{}{}
		}
	}
	return out, nil
}

// Visible decides whether a caller may see a package. An unlabeled package
// is public to any authenticated caller; otherwise the caller's label set
// must intersect the package's labels.
func Visible(pkg *core.Package, caller *core.User, callerLabels map[string]struct{}) bool {
	if caller != nil && caller.Superuser {
		return true
	}
	if len(pkg.Labels) == 0 {
		return true
	}
	for _, l := range pkg.Labels {
		if _, ok := callerLabels[l]; ok {
			return true
		}
	}
	return false
}
