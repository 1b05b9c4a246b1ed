package policy

import "fmt"

// Method is one operation category that can be exposed for a resource kind.
type Method string

// The closed set of valid methods. Anything else in a configuration is a
// ConfigError.
const (
	MethodDocs   Method = "docs"
	MethodList   Method = "list"
	MethodGet    Method = "get"
	MethodCreate Method = "create"
	MethodUpdate Method = "update"
)

// allMethods lists every method in canonical order. Keep this order stable:
// it determines capability registration order and test expectations.
var allMethods = []Method{MethodDocs, MethodList, MethodGet, MethodCreate, MethodUpdate}

// Methods returns every valid method in canonical order.
func Methods() []Method {
	out := make([]Method, len(allMethods))
	copy(out, allMethods)
	return out
}

// ParseMethod validates a raw method token.
func ParseMethod(token string) (Method, error) {
	for _, m := range allMethods {
		if string(m) == token {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown method %q (valid: docs, list, get, create, update)", token)
}

// IsMutating reports whether the method changes cluster state. Mutating
// operations are never retried automatically by the dispatcher.
func (m Method) IsMutating() bool {
	return m == MethodCreate || m == MethodUpdate
}

// MethodSet is a resolved, immutable set of allowed methods.
type MethodSet struct {
	members map[Method]bool
}

// NewMethodSet builds a set from the given methods.
func NewMethodSet(methods ...Method) MethodSet {
	members := make(map[Method]bool, len(methods))
	for _, m := range methods {
		members[m] = true
	}
	return MethodSet{members: members}
}

// AllowAll returns the set containing every method.
func AllowAll() MethodSet {
	return NewMethodSet(allMethods...)
}

// Has reports whether the method is in the set.
func (s MethodSet) Has(m Method) bool {
	return s.members[m]
}

// IsEmpty reports whether no method is allowed.
func (s MethodSet) IsEmpty() bool {
	return len(s.members) == 0
}

// Len returns the number of allowed methods.
func (s MethodSet) Len() int {
	return len(s.members)
}

// Methods returns the members in canonical order.
func (s MethodSet) Methods() []Method {
	out := make([]Method, 0, len(s.members))
	for _, m := range allMethods {
		if s.members[m] {
			out = append(out, m)
		}
	}
	return out
}

// String renders the set for logs, e.g. "[docs list get]".
func (s MethodSet) String() string {
	return fmt.Sprintf("%v", s.Methods())
}
