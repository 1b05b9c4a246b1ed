package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/openinfra/mcp-crd/internal/kube"
	"github.com/openinfra/mcp-crd/internal/policy"
	"github.com/openinfra/mcp-crd/internal/registry"
)

// fakeClient implements kube.Client with overridable behavior per method.
type fakeClient struct {
	getFunc    func(ctx context.Context, kind kube.ResourceKind, namespace, name string) (*unstructured.Unstructured, error)
	listFunc   func(ctx context.Context, kind kube.ResourceKind, namespace string) ([]string, error)
	createFunc func(ctx context.Context, kind kube.ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error)
	updateFunc func(ctx context.Context, kind kube.ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error)
	docsFunc   func(ctx context.Context, kind kube.ResourceKind) (map[string]interface{}, error)
}

func (f *fakeClient) DiscoverKinds(ctx context.Context) ([]kube.ResourceKind, error) {
	return nil, nil
}

func (f *fakeClient) GetResource(ctx context.Context, kind kube.ResourceKind, namespace, name string) (*unstructured.Unstructured, error) {
	return f.getFunc(ctx, kind, namespace, name)
}

func (f *fakeClient) ListResources(ctx context.Context, kind kube.ResourceKind, namespace string) ([]string, error) {
	return f.listFunc(ctx, kind, namespace)
}

func (f *fakeClient) CreateResource(ctx context.Context, kind kube.ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
	return f.createFunc(ctx, kind, namespace, name, spec)
}

func (f *fakeClient) UpdateResource(ctx context.Context, kind kube.ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
	return f.updateFunc(ctx, kind, namespace, name, spec)
}

func (f *fakeClient) ResourceDocs(ctx context.Context, kind kube.ResourceKind) (map[string]interface{}, error) {
	return f.docsFunc(ctx, kind)
}

func widgetKind() kube.ResourceKind {
	return kube.ResourceKind{
		Group:      "example.com",
		Version:    "v1",
		Kind:       "Widget",
		Plural:     "widgets",
		Singular:   "widget",
		Namespaced: true,
	}
}

func permissiveTable(t *testing.T) *policy.Table {
	t.Helper()
	table, err := policy.Normalize(&policy.Config{})
	require.NoError(t, err)
	return table
}

func newTestDispatcher(t *testing.T, client kube.Client, table *policy.Table) *Dispatcher {
	t.Helper()
	reg, err := registry.Build([]kube.ResourceKind{widgetKind()}, permissiveTable(t))
	require.NoError(t, err)
	if table == nil {
		table = permissiveTable(t)
	}
	return New(reg, table, client, Config{RetryBackoff: time.Millisecond}, nil)
}

func widgetObject(name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "example.com/v1",
		"kind":       "Widget",
		"metadata":   map[string]interface{}{"name": name, "namespace": "default"},
		"spec":       map[string]interface{}{"size": int64(3)},
	}}
}

func TestInvokeUnknownCapability(t *testing.T) {
	d := newTestDispatcher(t, &fakeClient{}, nil)

	_, err := d.Invoke(context.Background(), "crd_get_gadget", nil)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Error(), "crd_get_gadget")
}

func TestInvokePolicyRecheckDenies(t *testing.T) {
	// A table that only allows list for the kind: the registry was built
	// permissively, so get is registered, but the dispatcher's own table
	// must still deny it.
	restrictive, err := policy.Normalize(&policy.Config{
		AllowedCRDs: []policy.Entry{{Name: "widgets.example.com", Methods: []string{"list"}}},
	})
	require.NoError(t, err)

	d := newTestDispatcher(t, &fakeClient{}, restrictive)

	_, err = d.Invoke(context.Background(), "crd_get_widget", map[string]interface{}{
		"namespace": "default",
		"name":      "w1",
	})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestInvokeParameterValidation(t *testing.T) {
	tests := []struct {
		name       string
		capability string
		args       map[string]interface{}
		field      string
	}{
		{
			name:       "get without namespace",
			capability: "crd_get_widget",
			args:       map[string]interface{}{"name": "w1"},
			field:      "namespace",
		},
		{
			name:       "get without name",
			capability: "crd_get_widget",
			args:       map[string]interface{}{"namespace": "default"},
			field:      "name",
		},
		{
			name:       "get with empty name",
			capability: "crd_get_widget",
			args:       map[string]interface{}{"namespace": "default", "name": ""},
			field:      "name",
		},
		{
			name:       "get with non-string name",
			capability: "crd_get_widget",
			args:       map[string]interface{}{"namespace": "default", "name": 7},
			field:      "name",
		},
		{
			name:       "create without spec",
			capability: "crd_create_widget",
			args:       map[string]interface{}{"namespace": "default", "name": "w1"},
			field:      "spec",
		},
		{
			name:       "create with non-object spec",
			capability: "crd_create_widget",
			args:       map[string]interface{}{"namespace": "default", "name": "w1", "spec": "big"},
			field:      "spec",
		},
		{
			name:       "list without namespace",
			capability: "crd_list_widget",
			args:       map[string]interface{}{},
			field:      "namespace",
		},
	}

	d := newTestDispatcher(t, &fakeClient{}, nil)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Invoke(context.Background(), tc.capability, tc.args)

			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
		})
	}
}

func TestInvokeDocsTakesNoParams(t *testing.T) {
	client := &fakeClient{
		docsFunc: func(ctx context.Context, kind kube.ResourceKind) (map[string]interface{}, error) {
			return map[string]interface{}{"type": "object"}, nil
		},
	}
	d := newTestDispatcher(t, client, nil)

	result, err := d.Invoke(context.Background(), "crd_docs_widget", nil)

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"type": "object"}, result)
}

func TestInvokeGet(t *testing.T) {
	client := &fakeClient{
		getFunc: func(ctx context.Context, kind kube.ResourceKind, namespace, name string) (*unstructured.Unstructured, error) {
			assert.Equal(t, "default", namespace)
			assert.Equal(t, "w1", name)
			return widgetObject(name), nil
		},
	}
	d := newTestDispatcher(t, client, nil)

	result, err := d.Invoke(context.Background(), "crd_get_widget", map[string]interface{}{
		"namespace": "default",
		"name":      "w1",
	})

	require.NoError(t, err)
	obj, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Widget", obj["kind"])
}

func TestInvokeListReturnsEmptySliceNotNil(t *testing.T) {
	client := &fakeClient{
		listFunc: func(ctx context.Context, kind kube.ResourceKind, namespace string) ([]string, error) {
			return nil, nil
		},
	}
	d := newTestDispatcher(t, client, nil)

	result, err := d.Invoke(context.Background(), "crd_list_widget", map[string]interface{}{
		"namespace": "default",
	})

	require.NoError(t, err)
	names, ok := result.([]string)
	require.True(t, ok)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestInvokeCreatePassesSpec(t *testing.T) {
	var gotSpec map[string]interface{}
	client := &fakeClient{
		createFunc: func(ctx context.Context, kind kube.ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
			gotSpec = spec
			return widgetObject(name), nil
		},
	}
	d := newTestDispatcher(t, client, nil)

	_, err := d.Invoke(context.Background(), "crd_create_widget", map[string]interface{}{
		"namespace": "default",
		"name":      "w1",
		"spec":      map[string]interface{}{"size": 3},
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"size": 3}, gotSpec)
}

func TestInvokeTranslatesNotFound(t *testing.T) {
	gvr := schema.GroupResource{Group: "example.com", Resource: "widgets"}
	client := &fakeClient{
		getFunc: func(ctx context.Context, kind kube.ResourceKind, namespace, name string) (*unstructured.Unstructured, error) {
			return nil, apierrors.NewNotFound(gvr, name)
		},
	}
	d := newTestDispatcher(t, client, nil)

	_, err := d.Invoke(context.Background(), "crd_get_widget", map[string]interface{}{
		"namespace": "default",
		"name":      "missing",
	})

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestInvokeTranslatesForbidden(t *testing.T) {
	gvr := schema.GroupResource{Group: "example.com", Resource: "widgets"}
	client := &fakeClient{
		createFunc: func(ctx context.Context, kind kube.ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
			return nil, apierrors.NewForbidden(gvr, name, errors.New("RBAC denied"))
		},
	}
	d := newTestDispatcher(t, client, nil)

	_, err := d.Invoke(context.Background(), "crd_create_widget", map[string]interface{}{
		"namespace": "default",
		"name":      "w1",
		"spec":      map[string]interface{}{},
	})

	var permission *PermissionError
	require.ErrorAs(t, err, &permission)
}

func TestInvokeTranslatesConflict(t *testing.T) {
	gvr := schema.GroupResource{Group: "example.com", Resource: "widgets"}
	client := &fakeClient{
		updateFunc: func(ctx context.Context, kind kube.ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
			return nil, apierrors.NewConflict(gvr, name, errors.New("object was modified"))
		},
	}
	d := newTestDispatcher(t, client, nil)

	_, err := d.Invoke(context.Background(), "crd_update_widget", map[string]interface{}{
		"namespace": "default",
		"name":      "w1",
		"spec":      map[string]interface{}{},
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestInvokeRetriesTransientReadFailures(t *testing.T) {
	calls := 0
	client := &fakeClient{
		listFunc: func(ctx context.Context, kind kube.ResourceKind, namespace string) ([]string, error) {
			calls++
			if calls < 3 {
				return nil, apierrors.NewTooManyRequests("slow down", 1)
			}
			return []string{"w1"}, nil
		},
	}
	d := newTestDispatcher(t, client, nil)

	result, err := d.Invoke(context.Background(), "crd_list_widget", map[string]interface{}{
		"namespace": "default",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, result)
	assert.Equal(t, 3, calls)
}

func TestInvokeDoesNotRetryWrites(t *testing.T) {
	calls := 0
	client := &fakeClient{
		createFunc: func(ctx context.Context, kind kube.ResourceKind, namespace, name string, spec map[string]interface{}) (*unstructured.Unstructured, error) {
			calls++
			return nil, apierrors.NewTooManyRequests("slow down", 1)
		},
	}
	d := newTestDispatcher(t, client, nil)

	_, err := d.Invoke(context.Background(), "crd_create_widget", map[string]interface{}{
		"namespace": "default",
		"name":      "w1",
		"spec":      map[string]interface{}{},
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestInvokeDoesNotRetryDefinitiveReadFailures(t *testing.T) {
	gvr := schema.GroupResource{Group: "example.com", Resource: "widgets"}
	calls := 0
	client := &fakeClient{
		getFunc: func(ctx context.Context, kind kube.ResourceKind, namespace, name string) (*unstructured.Unstructured, error) {
			calls++
			return nil, apierrors.NewNotFound(gvr, name)
		},
	}
	d := newTestDispatcher(t, client, nil)

	_, err := d.Invoke(context.Background(), "crd_get_widget", map[string]interface{}{
		"namespace": "default",
		"name":      "w1",
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
