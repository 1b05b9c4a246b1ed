// Package kube implements the cluster client used by the MCP tools.
//
// It discovers the cluster's custom resource definitions through the
// apiextensions API and performs all resource operations through the dynamic
// client, so no compiled-in types are needed for any CRD. Authentication
// follows standard kubeconfig loading rules, with optional in-cluster
// service account authentication for deployments inside a pod.
package kube
