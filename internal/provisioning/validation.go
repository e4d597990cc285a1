package provisioning

import (
	"fmt"
	"strings"

	"github.com/autokube/provisioner/internal/config"
	"github.com/autokube/provisioner/internal/provisioning/execute"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/overlay"
	"github.com/autokube/provisioner/internal/topology"
)

// ValidationError represents a descriptor validation error or warning.
type ValidationError struct {
	Field    string // Descriptor field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == "error"
}

// ValidationPhase implements the Phase interface for pre-flight checks of the
// fetched descriptor. It runs before anything is written to disk.
type ValidationPhase struct{}

// NewValidationPhase creates a new validation phase.
func NewValidationPhase() *ValidationPhase {
	return &ValidationPhase{}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validate"
}

// Provision implements the Phase interface.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	if ctx.State.Descriptor == nil {
		return fault.Newf(fault.KindTopology, "no descriptor loaded")
	}

	var errs []string
	for _, ve := range validate(ctx.State.Descriptor, ctx.Config) {
		if ve.IsError() {
			errs = append(errs, ve.Error())
			continue
		}
		ctx.State.Warn(ve.Message)
		LogWarning(ctx.Observer, vp.Name(), ve.Message)
	}

	if len(errs) > 0 {
		return fault.Newf(fault.KindTopology, "descriptor validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// validate runs all checks and returns any errors or warnings.
func validate(d *topology.ClusterDescriptor, cfg *config.Config) []ValidationError {
	var errs []ValidationError

	// --- Topology ---

	if len(d.Nodes) == 0 {
		errs = append(errs, ValidationError{
			Field:    "nodes",
			Message:  "at least one node is required",
			Severity: "error",
		})
	}

	masters := 0
	for i, n := range d.Nodes {
		switch n.Role {
		case topology.RoleMaster:
			masters++
		case topology.RoleWorker:
		default:
			errs = append(errs, ValidationError{
				Field:    fmt.Sprintf("nodes[%d].role", i),
				Message:  fmt.Sprintf("unsupported role %q (valid: MASTER, WORKER)", n.Role),
				Severity: "error",
			})
		}
	}

	if len(d.Nodes) > 0 && masters == 0 {
		errs = append(errs, ValidationError{
			Field:    "nodes",
			Message:  "at least one MASTER node is required",
			Severity: "error",
		})
	}
	if masters > 1 && masters%2 == 0 {
		errs = append(errs, ValidationError{
			Field:    "nodes",
			Message:  fmt.Sprintf("%d control-plane nodes give etcd no extra fault tolerance over %d; use an odd count", masters, masters-1),
			Severity: "warning",
		})
	}

	// --- Versions ---

	if d.KubernetesVersion == "" {
		errs = append(errs, ValidationError{
			Field:    "kubernetesVersion",
			Message:  fmt.Sprintf("no Kubernetes version requested, using %s", overlay.DefaultKubernetesVersion),
			Severity: "warning",
		})
	}

	if d.ContainerVersion != "" && d.ContainerRuntime == "" {
		errs = append(errs, ValidationError{
			Field:    "containerVersion",
			Message:  "container version is ignored without a container runtime",
			Severity: "warning",
		})
	}

	// --- Strategy ---

	if cfg != nil && execute.Select(cfg.Strategy, d) == execute.MethodSkipped {
		errs = append(errs, ValidationError{
			Field:    "clusterApp.kubesphere.enabled",
			Message:  "strategy helm is forced but the KubeSphere app is disabled; nothing will be installed",
			Severity: "warning",
		})
	}

	return errs
}
