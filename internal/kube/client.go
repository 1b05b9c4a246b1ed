package kube

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Default client settings, matching kubectl's conservative API limits.
const (
	DefaultQPSLimit   = 20.0
	DefaultBurstLimit = 30
	DefaultTimeout    = 30 * time.Second
)

// Client defines the cluster operations the server needs: discovering
// custom resource kinds and performing the per-kind operations the
// capability registry exposes.
//
// Implementations must be safe for concurrent use; every method honors
// context cancellation and deadlines.
type Client interface {
	// DiscoverKinds lists the cluster's custom resource definitions and
	// returns one ResourceKind per CRD, using each CRD's storage version.
	DiscoverKinds(ctx context.Context) ([]ResourceKind, error)

	// GetResource fetches a single resource by name. namespace is ignored
	// for cluster-scoped kinds.
	GetResource(ctx context.Context, kind ResourceKind, namespace, name string) (*unstructured.Unstructured, error)

	// ListResources returns the names of all resources of the kind, in the
	// given namespace for namespaced kinds or cluster-wide otherwise.
	ListResources(ctx context.Context, kind ResourceKind, namespace string) ([]string, error)

	// CreateResource creates a resource from name, namespace and spec.
	CreateResource(ctx context.Context, kind ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error)

	// UpdateResource merge-patches the spec of an existing resource.
	UpdateResource(ctx context.Context, kind ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error)

	// ResourceDocs returns the trimmed openAPIV3Schema documentation for the
	// kind's spec, suitable for handing to an agent as a writable-field
	// reference.
	ResourceDocs(ctx context.Context, kind ResourceKind) (map[string]interface{}, error)
}

// ClientConfig holds configuration for the cluster client.
type ClientConfig struct {
	// Kubeconfig settings. Ignored when InCluster is set.
	KubeconfigPath string
	Context        string

	// InCluster uses service account authentication instead of a kubeconfig.
	InCluster bool

	// Performance settings. Zero values fall back to the defaults above.
	QPSLimit   float32
	BurstLimit int
	Timeout    time.Duration
}
