package execute

import (
	"github.com/autokube/provisioner/internal/config"
	"github.com/autokube/provisioner/internal/topology"
)

// Method is what the executor actually did.
type Method string

const (
	MethodHelm      Method = "helm"
	MethodKubespray Method = "kubespray"
	// MethodSkipped means nothing was installed: Helm was forced but the
	// descriptor does not request the app it installs.
	MethodSkipped Method = "skipped"
)

// Select resolves the configured strategy against a descriptor.
func Select(strategy config.Strategy, d *topology.ClusterDescriptor) Method {
	switch strategy {
	case config.StrategyKubespray:
		return MethodKubespray
	case config.StrategyHelm:
		if d.KubeSphereEnabled() {
			return MethodHelm
		}
		return MethodSkipped
	default:
		if d.KubeSphereEnabled() {
			return MethodHelm
		}
		return MethodKubespray
	}
}
