package kube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
	apiextclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/openinfra/mcp-crd/internal/logging"
)

// clusterClient implements Client using the dynamic client for resource
// operations and the apiextensions clientset for CRD discovery.
type clusterClient struct {
	config  *ClientConfig
	dynamic dynamic.Interface
	apiext  apiextclientset.Interface

	// docsGroup deduplicates concurrent CRD fetches for docs requests.
	docsGroup singleflight.Group
}

// NewClient creates a cluster client from the given configuration.
func NewClient(config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("client configuration is required")
	}
	if config.QPSLimit == 0 {
		config.QPSLimit = DefaultQPSLimit
	}
	if config.BurstLimit == 0 {
		config.BurstLimit = DefaultBurstLimit
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	restConfig, err := buildRestConfig(config)
	if err != nil {
		return nil, err
	}
	restConfig.QPS = config.QPSLimit
	restConfig.Burst = config.BurstLimit
	restConfig.Timeout = config.Timeout

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	apiextClient, err := apiextclientset.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create apiextensions client: %w", err)
	}

	slog.Debug("cluster client created",
		slog.Bool("in_cluster", config.InCluster),
		logging.Host(restConfig.Host))

	return &clusterClient{
		config:  config,
		dynamic: dynamicClient,
		apiext:  apiextClient,
	}, nil
}

// buildRestConfig resolves cluster connection settings, preferring an
// explicit kubeconfig and falling back to in-cluster service account
// credentials when requested.
func buildRestConfig(config *ClientConfig) (*rest.Config, error) {
	if config.InCluster {
		restConfig, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("in-cluster authentication not available: %w", err)
		}
		return restConfig, nil
	}

	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if config.KubeconfigPath != "" {
		loadingRules.ExplicitPath = config.KubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{}
	if config.Context != "" {
		overrides.CurrentContext = config.Context
	}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return restConfig, nil
}

// resourceInterface returns the dynamic interface for the kind, scoped to
// the namespace for namespaced kinds.
func (c *clusterClient) resourceInterface(kind ResourceKind, namespace string) dynamic.ResourceInterface {
	if kind.Namespaced && namespace != "" {
		return c.dynamic.Resource(kind.GroupVersionResource()).Namespace(namespace)
	}
	return c.dynamic.Resource(kind.GroupVersionResource())
}

func (c *clusterClient) GetResource(ctx context.Context, kind ResourceKind, namespace, name string) (*unstructured.Unstructured, error) {
	obj, err := c.resourceInterface(kind, namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %q: %w", kind.Kind, name, err)
	}
	return slim(obj), nil
}

func (c *clusterClient) ListResources(ctx context.Context, kind ResourceKind, namespace string) ([]string, error) {
	list, err := c.resourceInterface(kind, namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Plural, err)
	}

	names := make([]string, 0, len(list.Items))
	for i := range list.Items {
		names = append(names, list.Items[i].GetName())
	}
	slog.Debug("listed resources",
		logging.ResourceType(kind.Plural),
		logging.Namespace(namespace),
		slog.Int("count", len(names)))
	return names, nil
}

func (c *clusterClient) CreateResource(ctx context.Context, kind ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
	body := manifestBody(kind, namespace, name, spec)

	created, err := c.resourceInterface(kind, namespace).Create(ctx, body, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %q: %w", kind.Kind, name, err)
	}
	return slim(created), nil
}

func (c *clusterClient) UpdateResource(ctx context.Context, kind ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
	body := manifestBody(kind, namespace, name, spec)
	data, err := json.Marshal(body.Object)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %q: %w", kind.Kind, name, err)
	}

	patched, err := c.resourceInterface(kind, namespace).Patch(ctx, name, types.MergePatchType, data, metav1.PatchOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %q: %w", kind.Kind, name, err)
	}
	return slim(patched), nil
}

// manifestBody assembles the unstructured manifest for create and update.
func manifestBody(kind ResourceKind, namespace, name string, spec map[string]interface{}) *unstructured.Unstructured {
	metadata := map[string]interface{}{"name": name}
	if kind.Namespaced && namespace != "" {
		metadata["namespace"] = namespace
	}
	if spec == nil {
		spec = map[string]interface{}{}
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": kind.APIVersion(),
		"kind":       kind.Kind,
		"metadata":   metadata,
		"spec":       spec,
	}}
}

// slim drops managedFields, which are verbose and useless to callers.
func slim(obj *unstructured.Unstructured) *unstructured.Unstructured {
	if obj == nil {
		return nil
	}
	unstructured.RemoveNestedField(obj.Object, "metadata", "managedFields")
	return obj
}
