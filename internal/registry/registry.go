// Package registry builds the immutable set of invokable capabilities from
// the discovered resource kinds and the resolved access policy.
//
// One capability is one (resource kind, method) pair, exposed under a
// deterministic name. Kinds whose effective policy is empty contribute no
// capabilities at all, so a denied operation is simply unreachable.
package registry

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/openinfra/mcp-crd/internal/kube"
	"github.com/openinfra/mcp-crd/internal/logging"
	"github.com/openinfra/mcp-crd/internal/policy"
)

// NamePrefix is the fixed prefix of every capability name.
const NamePrefix = "crd"

// Capability is one invokable (resource kind, method) pair.
type Capability struct {
	// Name is the externally visible identifier,
	// <prefix>_<method>_<simplified-kind-name>.
	Name string
	// Kind is the resource kind the capability operates on.
	Kind kube.ResourceKind
	// Method is the operation category.
	Method policy.Method
}

// BuildError reports a capability naming collision that could not be
// disambiguated. Fatal at startup.
type BuildError struct {
	Name   string
	First  kube.ResourceKind
	Second kube.ResourceKind
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("capability name %q collides between %s and %s",
		e.Name, e.First.FullName(), e.Second.FullName())
}

// Registry is the closed, read-only set of capabilities built once at
// startup. Safe for unsynchronized concurrent reads.
type Registry struct {
	byName  map[string]Capability
	ordered []Capability
}

// Build resolves the policy for every discovered kind and emits one
// capability per allowed method. Two distinct kinds that reduce to the same
// simplified name get a group suffix appended; if names still collide the
// build fails.
func Build(kinds []kube.ResourceKind, table *policy.Table) (*Registry, error) {
	// Sort a copy so the result never depends on discovery order.
	sorted := make([]kube.ResourceKind, len(kinds))
	copy(sorted, kinds)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].FullName() < sorted[j].FullName()
	})

	// Count simplified-name usage across distinct kinds so clashing kinds
	// can be disambiguated by group.
	nameUsage := make(map[string]int, len(sorted))
	for _, kind := range sorted {
		nameUsage[simplifiedName(kind)]++
	}

	r := &Registry{byName: make(map[string]Capability)}
	for _, kind := range sorted {
		effective := table.Resolve(kind.Group, kind.FullName())
		if effective.IsEmpty() {
			slog.Debug("skipping kind denied by policy", logging.ResourceName(kind.FullName()))
			continue
		}

		simplified := simplifiedName(kind)
		if nameUsage[simplified] > 1 {
			simplified = simplified + "_" + sanitizeNameSegment(kind.Group)
		}

		slog.Info("registering kind",
			logging.ResourceName(kind.FullName()),
			slog.String("methods", effective.String()))

		for _, method := range effective.Methods() {
			cap := Capability{
				Name:   fmt.Sprintf("%s_%s_%s", NamePrefix, method, simplified),
				Kind:   kind,
				Method: method,
			}
			if existing, taken := r.byName[cap.Name]; taken {
				return nil, &BuildError{Name: cap.Name, First: existing.Kind, Second: kind}
			}
			r.byName[cap.Name] = cap
			r.ordered = append(r.ordered, cap)
		}
	}

	slog.Info("capability registry built",
		slog.Int("kinds", len(sorted)),
		slog.Int("capabilities", len(r.ordered)))
	return r, nil
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (Capability, bool) {
	cap, ok := r.byName[name]
	return cap, ok
}

// Capabilities returns all capabilities in stable (kind, method) order.
func (r *Registry) Capabilities() []Capability {
	out := make([]Capability, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// invalidSegmentChars matches everything not allowed in a name segment.
var invalidSegmentChars = regexp.MustCompile(`[^a-z0-9]+`)

// simplifiedName derives the short lower-case singular form of a kind,
// preferring the CRD's declared singular name.
func simplifiedName(kind kube.ResourceKind) string {
	name := kind.Singular
	if name == "" {
		name = strings.ToLower(kind.Kind)
	}
	return sanitizeNameSegment(name)
}

// sanitizeNameSegment lowers a segment and collapses every run of
// non-alphanumeric characters (dots in group names, dashes) to one
// underscore.
func sanitizeNameSegment(s string) string {
	s = invalidSegmentChars.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(s, "_")
}
