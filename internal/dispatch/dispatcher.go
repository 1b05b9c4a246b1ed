package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openinfra/mcp-crd/internal/kube"
	"github.com/openinfra/mcp-crd/internal/logging"
	"github.com/openinfra/mcp-crd/internal/policy"
	"github.com/openinfra/mcp-crd/internal/registry"
)

// Default invocation settings.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultReadRetries    = 2
	DefaultRetryBackoff   = 250 * time.Millisecond
)

// Config tunes dispatcher behavior. Zero values fall back to the defaults
// above.
type Config struct {
	// RequestTimeout bounds each invocation end to end, including retries.
	RequestTimeout time.Duration

	// ReadRetries is the number of additional attempts for transient read
	// failures. Writes always run exactly once.
	ReadRetries int

	// RetryBackoff is the delay before the first retry; it doubles per
	// attempt.
	RetryBackoff time.Duration
}

// Dispatcher executes capability invocations against the cluster.
type Dispatcher struct {
	registry *registry.Registry
	table    *policy.Table
	client   kube.Client
	config   Config
	logger   *slog.Logger
}

// New builds a Dispatcher over a populated registry and the policy table the
// registry was built from.
func New(reg *registry.Registry, table *policy.Table, client kube.Client, config Config, logger *slog.Logger) *Dispatcher {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.ReadRetries <= 0 {
		config.ReadRetries = DefaultReadRetries
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: reg,
		table:    table,
		client:   client,
		config:   config,
		logger:   logger,
	}
}

// Invoke executes the named capability with the given arguments and returns
// a JSON-serializable result. Errors are always from the package taxonomy:
// NotFoundError, ValidationError, PermissionError, ConflictError or
// TimeoutError, with a plain wrapped error for anything unclassified.
func (d *Dispatcher) Invoke(ctx context.Context, capabilityName string, args map[string]interface{}) (interface{}, error) {
	capability, ok := d.registry.Lookup(capabilityName)
	if !ok {
		return nil, &NotFoundError{What: fmt.Sprintf("capability %q", capabilityName)}
	}

	// Registration already enforced the policy, but re-resolve here so a
	// registry handed a stale or mismatched table cannot widen access.
	effective := d.table.Resolve(capability.Kind.Group, capability.Kind.FullName())
	if !effective.Has(capability.Method) {
		return nil, &NotFoundError{What: fmt.Sprintf("capability %q", capabilityName)}
	}

	params, err := parseParams(capability, args)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := d.execute(ctx, capability, params)
	duration := time.Since(start)

	op := fmt.Sprintf("%s %s", capability.Method, capability.Kind.FullName())
	if err != nil {
		translated := translateClusterError(op, err)
		d.logger.Error("capability invocation failed",
			logging.Capability(capability.Name),
			logging.Method(string(capability.Method)),
			logging.ResourceType(capability.Kind.FullName()),
			logging.Duration(duration),
			logging.Status(logging.StatusError),
			logging.SanitizedErr(translated))
		return nil, translated
	}

	d.logger.Info("capability invocation completed",
		logging.Capability(capability.Name),
		logging.Method(string(capability.Method)),
		logging.ResourceType(capability.Kind.FullName()),
		logging.Duration(duration),
		logging.Status(logging.StatusSuccess))
	return result, nil
}

// invokeParams holds the validated arguments of a single invocation.
type invokeParams struct {
	namespace string
	name      string
	spec      map[string]interface{}
}

// parseParams validates args against what the capability's method and the
// kind's scope require. Docs takes nothing; list takes a namespace for
// namespaced kinds; get adds a name; create and update add a spec body.
func parseParams(capability registry.Capability, args map[string]interface{}) (invokeParams, error) {
	var params invokeParams

	if capability.Kind.Namespaced && capability.Method != policy.MethodDocs {
		namespace, err := stringArg(args, "namespace")
		if err != nil {
			return params, err
		}
		params.namespace = namespace
	}

	switch capability.Method {
	case policy.MethodDocs, policy.MethodList:
		// No further parameters.
	case policy.MethodGet, policy.MethodCreate, policy.MethodUpdate:
		name, err := stringArg(args, "name")
		if err != nil {
			return params, err
		}
		params.name = name
	}

	if capability.Method.IsMutating() {
		raw, ok := args["spec"]
		if !ok || raw == nil {
			return params, &ValidationError{Field: "spec", Reason: "required"}
		}
		spec, ok := raw.(map[string]interface{})
		if !ok {
			return params, &ValidationError{Field: "spec", Reason: "must be an object"}
		}
		params.spec = spec
	}

	return params, nil
}

func stringArg(args map[string]interface{}, field string) (string, error) {
	raw, ok := args[field]
	if !ok || raw == nil {
		return "", &ValidationError{Field: field, Reason: "required"}
	}
	value, ok := raw.(string)
	if !ok {
		return "", &ValidationError{Field: field, Reason: "must be a string"}
	}
	if value == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return value, nil
}

func (d *Dispatcher) execute(ctx context.Context, capability registry.Capability, params invokeParams) (interface{}, error) {
	kind := capability.Kind

	switch capability.Method {
	case policy.MethodDocs:
		var docs map[string]interface{}
		err := d.withRetry(ctx, func() error {
			var opErr error
			docs, opErr = d.client.ResourceDocs(ctx, kind)
			return opErr
		})
		return docs, err

	case policy.MethodList:
		var names []string
		err := d.withRetry(ctx, func() error {
			var opErr error
			names, opErr = d.client.ListResources(ctx, kind, params.namespace)
			return opErr
		})
		if names == nil && err == nil {
			names = []string{}
		}
		return names, err

	case policy.MethodGet:
		var obj map[string]interface{}
		err := d.withRetry(ctx, func() error {
			resource, opErr := d.client.GetResource(ctx, kind, params.namespace, params.name)
			if opErr != nil {
				return opErr
			}
			obj = resource.Object
			return nil
		})
		return obj, err

	case policy.MethodCreate:
		resource, err := d.client.CreateResource(ctx, kind, params.namespace, params.name, params.spec)
		if err != nil {
			return nil, err
		}
		return resource.Object, nil

	case policy.MethodUpdate:
		resource, err := d.client.UpdateResource(ctx, kind, params.namespace, params.name, params.spec)
		if err != nil {
			return nil, err
		}
		return resource.Object, nil

	default:
		return nil, fmt.Errorf("unsupported method %q", capability.Method)
	}
}

// withRetry runs op and retries transient failures with doubling backoff, up
// to the configured attempt count. The invocation deadline keeps the total
// time bounded.
func (d *Dispatcher) withRetry(ctx context.Context, op func() error) error {
	backoff := d.config.RetryBackoff
	var err error
	for attempt := 0; attempt <= d.config.ReadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		err = op()
		if err == nil || !isTransient(err) {
			return err
		}
		d.logger.Warn("retrying transient cluster error",
			slog.Int("attempt", attempt+1),
			logging.SanitizedErr(err))
	}
	return err
}
