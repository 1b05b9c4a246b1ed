package kube

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextfake "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset/fake"
	"k8s.io/apimachinery/pkg/runtime"
	k8stesting "k8s.io/client-go/testing"
)

func schemaFixture() *apiextensionsv1.JSONSchemaProps {
	return &apiextensionsv1.JSONSchemaProps{
		Type:        "object",
		Description: "Widget configuration",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"spec": {
				Type:     "object",
				Required: []string{"size"},
				Properties: map[string]apiextensionsv1.JSONSchemaProps{
					"size": {
						Type:        "integer",
						Description: strings.Repeat("long ", 40),
						Default:     &apiextensionsv1.JSON{Raw: []byte(`3`)},
					},
					"mode": {
						Type: "string",
						Enum: []apiextensionsv1.JSON{
							{Raw: []byte(`"fast"`)},
							{Raw: []byte(`"safe"`)},
							{Raw: []byte(`null`)},
						},
					},
					"tags": {
						Type:  "array",
						Items: &apiextensionsv1.JSONSchemaPropsOrArray{Schema: &apiextensionsv1.JSONSchemaProps{Type: "string"}},
					},
				},
				XPreserveUnknownFields: func() *bool { b := true; return &b }(),
			},
			"status": {Type: "object"},
		},
	}
}

func TestResourceDocs(t *testing.T) {
	crd := crdFixture("example.com", "widgets", "widget", "Widget",
		apiextensionsv1.NamespaceScoped,
		apiextensionsv1.CustomResourceDefinitionVersion{
			Name: "v1", Served: true, Storage: true,
			Schema: &apiextensionsv1.CustomResourceValidation{OpenAPIV3Schema: schemaFixture()},
		},
	)

	client := &clusterClient{
		config: &ClientConfig{},
		apiext: apiextfake.NewSimpleClientset(crd),
	}
	kind := ResourceKind{Group: "example.com", Version: "v1", Kind: "Widget", Plural: "widgets", Singular: "widget", Namespaced: true}

	docs, err := client.ResourceDocs(context.Background(), kind)
	require.NoError(t, err)

	assert.Equal(t, "object", docs["type"])
	assert.Equal(t, "Widget configuration", docs["description"], "root description comes from the CRD schema")
	assert.Equal(t, []string{"size"}, docs["required"])

	props, ok := docs["properties"].(map[string]interface{})
	require.True(t, ok)

	size, ok := props["size"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "integer", size["type"])
	assert.Len(t, size["description"], maxDescriptionLength, "long descriptions are truncated")
	assert.Equal(t, float64(3), size["default"])

	mode, ok := props["mode"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"fast", "safe"}, mode["enum"], "null enum members are dropped")

	tags, ok := props["tags"].(map[string]interface{})
	require.True(t, ok)
	items, ok := tags["items"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "string", items["type"])

	// Status machinery and validation extensions never reach the caller.
	assert.NotContains(t, props, "status")
	for _, field := range props {
		assert.NotContains(t, field.(map[string]interface{}), "x-kubernetes-preserve-unknown-fields")
	}
}

func TestResourceDocsMissingCRD(t *testing.T) {
	client := &clusterClient{
		config: &ClientConfig{},
		apiext: apiextfake.NewSimpleClientset(),
	}
	kind := ResourceKind{Group: "example.com", Version: "v1", Kind: "Widget", Plural: "widgets"}

	_, err := client.ResourceDocs(context.Background(), kind)
	assert.Error(t, err)
}

func TestResourceDocsNoSchema(t *testing.T) {
	crd := crdFixture("example.com", "widgets", "widget", "Widget",
		apiextensionsv1.NamespaceScoped,
		apiextensionsv1.CustomResourceDefinitionVersion{Name: "v1", Served: true, Storage: true},
	)
	client := &clusterClient{
		config: &ClientConfig{},
		apiext: apiextfake.NewSimpleClientset(crd),
	}
	kind := ResourceKind{Group: "example.com", Version: "v1", Kind: "Widget", Plural: "widgets"}

	_, err := client.ResourceDocs(context.Background(), kind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema")
}

func TestResourceDocsSurvivesCallerCancel(t *testing.T) {
	crd := crdFixture("example.com", "widgets", "widget", "Widget",
		apiextensionsv1.NamespaceScoped,
		apiextensionsv1.CustomResourceDefinitionVersion{
			Name: "v1", Served: true, Storage: true,
			Schema: &apiextensionsv1.CustomResourceValidation{OpenAPIV3Schema: schemaFixture()},
		},
	)
	fake := apiextfake.NewSimpleClientset(crd)

	fetchStarted := make(chan struct{})
	fetchRelease := make(chan struct{})
	fake.PrependReactor("get", "customresourcedefinitions", func(k8stesting.Action) (bool, runtime.Object, error) {
		close(fetchStarted)
		<-fetchRelease
		return false, nil, nil
	})

	client := &clusterClient{config: &ClientConfig{}, apiext: fake}
	kind := ResourceKind{Group: "example.com", Version: "v1", Kind: "Widget", Plural: "widgets", Singular: "widget", Namespaced: true}

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		docs map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		docs, err := client.ResourceDocs(ctx, kind)
		done <- result{docs, err}
	}()

	// Cancel the caller while its fetch is in flight. The shared fetch is
	// detached from caller cancellation, so the docs still come back.
	<-fetchStarted
	cancel()
	close(fetchRelease)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, "object", got.docs["type"])
}

func TestVersionSchemaFallback(t *testing.T) {
	crd := crdFixture("example.com", "widgets", "widget", "Widget",
		apiextensionsv1.NamespaceScoped,
		apiextensionsv1.CustomResourceDefinitionVersion{
			Name: "v1beta1", Served: true,
			Schema: &apiextensionsv1.CustomResourceValidation{
				OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{Type: "object", Description: "beta"},
			},
		},
	)

	got := versionSchema(crd, "v1")
	require.NotNil(t, got)
	assert.Equal(t, "beta", got.Description)
}
