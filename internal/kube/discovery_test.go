package kube

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextfake "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset/fake"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func crdFixture(group, plural, singular, kind string, scope apiextensionsv1.ResourceScope, versions ...apiextensionsv1.CustomResourceDefinitionVersion) *apiextensionsv1.CustomResourceDefinition {
	return &apiextensionsv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{Name: plural + "." + group},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:   plural,
				Singular: singular,
				Kind:     kind,
			},
			Scope:    scope,
			Versions: versions,
		},
	}
}

func TestDiscoverKinds(t *testing.T) {
	widget := crdFixture("example.com", "widgets", "widget", "Widget",
		apiextensionsv1.NamespaceScoped,
		apiextensionsv1.CustomResourceDefinitionVersion{Name: "v1alpha1", Served: true},
		apiextensionsv1.CustomResourceDefinitionVersion{Name: "v1", Served: true, Storage: true},
	)
	gadget := crdFixture("example.com", "gadgets", "gadget", "Gadget",
		apiextensionsv1.ClusterScoped,
		apiextensionsv1.CustomResourceDefinitionVersion{Name: "v1beta1", Served: true},
		apiextensionsv1.CustomResourceDefinitionVersion{Name: "v1", Served: false, Storage: true},
	)
	retired := crdFixture("example.com", "relics", "relic", "Relic",
		apiextensionsv1.NamespaceScoped,
		apiextensionsv1.CustomResourceDefinitionVersion{Name: "v1", Served: false, Storage: true},
	)

	client := &clusterClient{
		config: &ClientConfig{},
		apiext: apiextfake.NewSimpleClientset(widget, gadget, retired),
	}

	kinds, err := client.DiscoverKinds(context.Background())
	require.NoError(t, err)
	require.Len(t, kinds, 2)

	byPlural := map[string]ResourceKind{}
	for _, k := range kinds {
		byPlural[k.Plural] = k
	}

	w := byPlural["widgets"]
	assert.Equal(t, "example.com", w.Group)
	assert.Equal(t, "v1", w.Version, "storage version wins over earlier served versions")
	assert.Equal(t, "Widget", w.Kind)
	assert.Equal(t, "widget", w.Singular)
	assert.True(t, w.Namespaced)
	assert.Equal(t, "widgets.example.com", w.FullName())

	g := byPlural["gadgets"]
	assert.Equal(t, "v1beta1", g.Version, "unserved storage version falls back to first served")
	assert.False(t, g.Namespaced)
}

func TestServedVersion(t *testing.T) {
	tests := []struct {
		name     string
		versions []apiextensionsv1.CustomResourceDefinitionVersion
		want     string
		ok       bool
	}{
		{
			name: "storage and served",
			versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{Name: "v1", Served: true, Storage: true},
			},
			want: "v1",
			ok:   true,
		},
		{
			name: "storage not served",
			versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{Name: "v2", Served: false, Storage: true},
				{Name: "v1", Served: true},
			},
			want: "v1",
			ok:   true,
		},
		{
			name: "nothing served",
			versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{Name: "v1", Served: false, Storage: true},
			},
			ok: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			crd := crdFixture("example.com", "widgets", "widget", "Widget",
				apiextensionsv1.NamespaceScoped, tc.versions...)
			got, ok := servedVersion(crd)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
