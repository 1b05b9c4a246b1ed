// Package policy implements the access-control layer that decides which
// operations are exposed for each discovered custom resource kind.
//
// The configuration declares two optional lists: allowed_groups (a rule for
// every kind in an API group) and allowed_crds (a rule for one specific kind,
// identified by its full name <plural>.<group>). Each rule carries a method
// list; an empty list means "allow every method".
//
// Normalization turns the raw declarations into an immutable Table.
// Resolution then follows a strict precedence:
//
//  1. A resource rule for the kind wins over everything else.
//  2. Otherwise a group rule for the kind's group applies.
//  3. Otherwise, if nothing at all was declared, every method is allowed.
//  4. Otherwise the kind is denied entirely.
//
// Steps 3 and 4 are why the Table records whether each list was declared:
// an absent configuration is fully permissive, while a configuration that
// exists but does not mention a kind denies it.
package policy
