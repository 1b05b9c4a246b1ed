package policy

// Resolve computes the effective allowed-method set for one resource kind,
// identified by its API group and full name (<plural>.<group>).
//
// Precedence, evaluated in order:
//
//  1. A resource rule for fullName: empty method list means allow all,
//     otherwise exactly the listed methods. Group rules are ignored.
//  2. A group rule for group: same empty-means-all semantics.
//  3. No rule matched and nothing was declared anywhere: allow all.
//  4. No rule matched but some policy exists: deny everything.
//
// Resolve is pure; the result depends only on the arguments, never on the
// order kinds were discovered or resolved.
func (t *Table) Resolve(group, fullName string) MethodSet {
	if rule, ok := t.ResourceRule(fullName); ok {
		return rule.effective()
	}
	if rule, ok := t.GroupRule(group); ok {
		return rule.effective()
	}
	if !t.Declared() {
		return AllowAll()
	}
	return NewMethodSet()
}

func (r Rule) effective() MethodSet {
	if r.allowsAll() {
		return AllowAll()
	}
	return NewMethodSet(r.Methods...)
}
