package logging

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHost(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{
			name: "empty host",
			host: "",
			want: "<empty>",
		},
		{
			name: "plain IPv4",
			host: "192.168.1.100",
			want: "<redacted-ip>",
		},
		{
			name: "IPv4 URL with port",
			host: "https://192.168.1.100:6443",
			want: "https://<redacted-ip>:6443",
		},
		{
			name: "hostname URL is preserved",
			host: "https://api.cluster.example.com:6443",
			want: "https://api.cluster.example.com:6443",
		},
		{
			name: "plain IPv6",
			host: "2001:db8::1",
			want: "<redacted-ip>",
		},
		{
			name: "bracketed IPv6 URL",
			host: "https://[2001:db8::1]:6443",
			want: "https://<redacted-ip>:6443",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeHost(tt.host))
		})
	}
}

func TestSanitizedErr(t *testing.T) {
	attr := SanitizedErr(errors.New("dial tcp 10.0.0.5:6443: connection refused"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Contains(t, attr.Value.String(), "<redacted-ip>")
	assert.NotContains(t, attr.Value.String(), "10.0.0.5")

	attr = SanitizedErr(nil)
	assert.Equal(t, "", attr.Value.String())
}

func TestAttrConstructors(t *testing.T) {
	tests := []struct {
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{Operation("dispatch"), KeyOperation, "dispatch"},
		{Namespace("default"), KeyNamespace, "default"},
		{ResourceType("widgets"), KeyResourceType, "widgets"},
		{ResourceName("widget-1"), KeyResourceName, "widget-1"},
		{Group("example.com"), KeyGroup, "example.com"},
		{Capability("crd_get_widget"), KeyCapability, "crd_get_widget"},
		{Method("get"), KeyMethod, "get"},
		{Status(StatusSuccess), KeyStatus, "success"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.wantKey, tt.attr.Key)
		assert.Equal(t, tt.wantVal, tt.attr.Value.String())
	}
}

func TestWithHelpers(t *testing.T) {
	logger := slog.Default()
	assert.NotNil(t, WithOperation(logger, "resolve"))
	assert.NotNil(t, WithTool(logger, "crd_list_widget"))
}
