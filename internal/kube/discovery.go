package kube

import (
	"context"
	"fmt"
	"log/slog"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/openinfra/mcp-crd/internal/logging"
)

// DiscoverKinds lists all CustomResourceDefinitions and maps each to a
// ResourceKind. CRDs without a served version are skipped.
func (c *clusterClient) DiscoverKinds(ctx context.Context) ([]ResourceKind, error) {
	crdList, err := c.apiext.ApiextensionsV1().CustomResourceDefinitions().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list custom resource definitions: %w", err)
	}

	kinds := make([]ResourceKind, 0, len(crdList.Items))
	for i := range crdList.Items {
		crd := &crdList.Items[i]
		version, ok := servedVersion(crd)
		if !ok {
			slog.Warn("skipping CRD with no served version", logging.ResourceName(crd.Name))
			continue
		}
		kinds = append(kinds, ResourceKind{
			Group:      crd.Spec.Group,
			Version:    version,
			Kind:       crd.Spec.Names.Kind,
			Plural:     crd.Spec.Names.Plural,
			Singular:   crd.Spec.Names.Singular,
			Namespaced: crd.Spec.Scope == apiextensionsv1.NamespaceScoped,
		})
	}
	return kinds, nil
}

// servedVersion picks the version to operate with: the storage version if it
// is served, otherwise the first served version.
func servedVersion(crd *apiextensionsv1.CustomResourceDefinition) (string, bool) {
	var firstServed string
	for _, v := range crd.Spec.Versions {
		if !v.Served {
			continue
		}
		if v.Storage {
			return v.Name, true
		}
		if firstServed == "" {
			firstServed = v.Name
		}
	}
	return firstServed, firstServed != ""
}
