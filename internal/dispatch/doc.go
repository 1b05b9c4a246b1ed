// Package dispatch routes capability invocations to the cluster client.
//
// The dispatcher is the single path every tool call takes: it validates
// parameters against the capability's method and scope, re-checks the access
// policy even though denied capabilities were never registered, applies a
// per-invocation deadline, retries transient read failures, and translates
// cluster errors into the package's typed taxonomy. Writes are never retried.
package dispatch
