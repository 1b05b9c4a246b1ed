package policy

import "fmt"

// ConfigError reports a malformed access configuration. It is fatal at
// startup: the server must not serve with a policy it cannot normalize.
type ConfigError struct {
	// List names the offending list, "allowed_groups" or "allowed_crds".
	List string
	// Entry is the name of the offending entry.
	Entry string
	// Detail describes what is wrong.
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid access config: %s entry %q: %s", e.List, e.Entry, e.Detail)
}

// Rule is a normalized policy rule. An empty Methods slice means every
// method is allowed.
type Rule struct {
	Name    string
	Methods []Method
}

// allowsAll reports whether the rule uses the empty-list wildcard.
func (r Rule) allowsAll() bool {
	return len(r.Methods) == 0
}

// Table is the normalized access policy: one lookup map per list, plus a
// record of whether each list declared anything at all. The declared flags
// are not derivable from the maps (a future config shape could normalize to
// empty maps while still counting as "declared") and drive the permissive
// default in Resolve.
//
// A Table is immutable after Normalize and safe for concurrent reads.
type Table struct {
	groups    map[string]Rule
	resources map[string]Rule

	groupsDeclared    bool
	resourcesDeclared bool
}

// Normalize validates the raw configuration and builds the lookup table.
// A nil config is the fully-permissive case (no policy file).
func Normalize(cfg *Config) (*Table, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	groups, err := normalizeList("allowed_groups", cfg.AllowedGroups)
	if err != nil {
		return nil, err
	}
	resources, err := normalizeList("allowed_crds", cfg.AllowedCRDs)
	if err != nil {
		return nil, err
	}

	return &Table{
		groups:            groups,
		resources:         resources,
		groupsDeclared:    len(cfg.AllowedGroups) > 0,
		resourcesDeclared: len(cfg.AllowedCRDs) > 0,
	}, nil
}

func normalizeList(list string, entries []Entry) (map[string]Rule, error) {
	rules := make(map[string]Rule, len(entries))
	for _, entry := range entries {
		if entry.Name == "" {
			return nil, &ConfigError{List: list, Entry: entry.Name, Detail: "name must not be empty"}
		}
		if _, exists := rules[entry.Name]; exists {
			return nil, &ConfigError{List: list, Entry: entry.Name, Detail: "duplicate entry"}
		}

		methods := make([]Method, 0, len(entry.Methods))
		for _, token := range entry.Methods {
			m, err := ParseMethod(token)
			if err != nil {
				return nil, &ConfigError{List: list, Entry: entry.Name, Detail: err.Error()}
			}
			methods = append(methods, m)
		}
		rules[entry.Name] = Rule{Name: entry.Name, Methods: methods}
	}
	return rules, nil
}

// Declared reports whether any policy was declared at all, in either list.
func (t *Table) Declared() bool {
	return t.groupsDeclared || t.resourcesDeclared
}

// GroupRule returns the rule for an API group, if declared.
func (t *Table) GroupRule(group string) (Rule, bool) {
	r, ok := t.groups[group]
	return r, ok
}

// ResourceRule returns the rule for a resource full name (<plural>.<group>),
// if declared.
func (t *Table) ResourceRule(fullName string) (Rule, bool) {
	r, ok := t.resources[fullName]
	return r, ok
}
