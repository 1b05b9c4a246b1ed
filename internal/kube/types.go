package kube

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// ResourceKind identifies one discoverable custom resource type. It is
// assembled from the CRD during discovery and immutable for the lifetime of
// a run.
type ResourceKind struct {
	// Group is the API group, e.g. "hive.openshift.io".
	Group string `json:"group"`
	// Version is the served version used for all operations.
	Version string `json:"version"`
	// Kind is the CamelCase kind name, e.g. "ClusterDeployment".
	Kind string `json:"kind"`
	// Plural is the lowercase plural resource name, e.g. "clusterdeployments".
	Plural string `json:"plural"`
	// Singular is the lowercase singular name. May be empty for CRDs that
	// do not declare one.
	Singular string `json:"singular,omitempty"`
	// Namespaced reports whether the resource is namespace-scoped.
	Namespaced bool `json:"namespaced"`
}

// FullName returns the resource's full name <plural>.<group>, which is also
// the CRD's metadata.name and the key used by resource-level policy rules.
func (k ResourceKind) FullName() string {
	return k.Plural + "." + k.Group
}

// APIVersion returns the group/version string for manifest bodies.
func (k ResourceKind) APIVersion() string {
	return k.Group + "/" + k.Version
}

// GroupVersionResource returns the GVR for dynamic client calls.
func (k ResourceKind) GroupVersionResource() schema.GroupVersionResource {
	return schema.GroupVersionResource{Group: k.Group, Version: k.Version, Resource: k.Plural}
}
