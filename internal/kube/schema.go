package kube

import (
	"context"
	"encoding/json"
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// maxDescriptionLength caps per-field descriptions in docs output. CRD
// schemas routinely carry paragraph-length descriptions on every field,
// which blows up the response without adding much for a caller deciding
// what to set.
const maxDescriptionLength = 100

// ResourceDocs fetches the kind's CRD and returns the trimmed documentation
// of its spec schema. Concurrent calls for the same kind share one CRD
// fetch.
func (c *clusterClient) ResourceDocs(ctx context.Context, kind ResourceKind) (map[string]interface{}, error) {
	// The shared fetch is detached from the first caller's cancellation so
	// one canceled caller cannot fail every concurrent waiter. The client's
	// rest config timeout still bounds the fetch.
	fetchCtx := context.WithoutCancel(ctx)
	result, err, _ := c.docsGroup.Do(kind.FullName(), func() (interface{}, error) {
		return c.fetchDocs(fetchCtx, kind)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]interface{}), nil
}

// fetchDocs builds the docs map for a kind, fetching the CRD from the
// cluster. Only ever called through the singleflight group above.
func (c *clusterClient) fetchDocs(ctx context.Context, kind ResourceKind) (map[string]interface{}, error) {
	crd, err := c.apiext.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, kind.FullName(), metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get CRD %s: %w", kind.FullName(), err)
	}

	schema := versionSchema(crd, kind.Version)
	if schema == nil {
		return nil, fmt.Errorf("CRD %s has no schema for version %s", kind.FullName(), kind.Version)
	}

	doc := map[string]interface{}{}
	if specProps, ok := schema.Properties["spec"]; ok {
		doc = filterSchema(&specProps)
	}
	if schema.Description != "" {
		doc["description"] = schema.Description
	}
	return doc, nil
}

// versionSchema returns the openAPIV3Schema for the requested version,
// falling back to the first version carrying one.
func versionSchema(crd *apiextensionsv1.CustomResourceDefinition, version string) *apiextensionsv1.JSONSchemaProps {
	var fallback *apiextensionsv1.JSONSchemaProps
	for i := range crd.Spec.Versions {
		v := &crd.Spec.Versions[i]
		if v.Schema == nil || v.Schema.OpenAPIV3Schema == nil {
			continue
		}
		if v.Name == version {
			return v.Schema.OpenAPIV3Schema
		}
		if fallback == nil {
			fallback = v.Schema.OpenAPIV3Schema
		}
	}
	return fallback
}

// filterSchema reduces a JSON schema to the fields useful for writing a
// resource: type, description, required, default, enum, items and nested
// properties. Everything else (validation rules, status machinery,
// x-kubernetes extensions) is dropped.
func filterSchema(props *apiextensionsv1.JSONSchemaProps) map[string]interface{} {
	out := map[string]interface{}{}
	if props == nil {
		return out
	}

	if props.Type != "" {
		out["type"] = props.Type
	}
	if props.Description != "" {
		out["description"] = truncate(props.Description, maxDescriptionLength)
	}
	if len(props.Required) > 0 {
		out["required"] = append([]string(nil), props.Required...)
	}
	if props.Default != nil {
		if v, ok := decodeJSON(*props.Default); ok {
			out["default"] = v
		}
	}
	if len(props.Enum) > 0 {
		values := make([]interface{}, 0, len(props.Enum))
		for _, e := range props.Enum {
			if v, ok := decodeJSON(e); ok && v != nil {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			out["enum"] = values
		}
	}
	if props.Items != nil && props.Items.Schema != nil {
		out["items"] = filterSchema(props.Items.Schema)
	}
	if len(props.Properties) > 0 {
		nested := make(map[string]interface{}, len(props.Properties))
		for name := range props.Properties {
			p := props.Properties[name]
			nested[name] = filterSchema(&p)
		}
		out["properties"] = nested
	}
	return out
}

func decodeJSON(raw apiextensionsv1.JSON) (interface{}, bool) {
	if len(raw.Raw) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(raw.Raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
