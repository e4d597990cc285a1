package testing

import (
	"github.com/autokube/provisioner/internal/topology"
)

// ThreeNodeCluster is one master (m1) and two workers (w1, w2) on Docker
// with every addon disabled.
func ThreeNodeCluster() *topology.ClusterDescriptor {
	return NewDescriptorBuilder().
		WithID("c-three").
		WithRuntime(topology.RuntimeDocker).
		WithMaster("m1", "10.0.0.1").
		WithWorker("w1", "10.0.0.2").
		WithWorker("w2", "10.0.0.3").
		Build()
}

// AllAddons is an addon configuration with everything enabled and sub-options left empty.
func AllAddons() topology.ClusterConfig {
	return topology.ClusterConfig{
		Helm:                 topology.HelmAddon{Enabled: true},
		Registry:             topology.RegistryAddon{Enabled: true},
		Metrics:              topology.MetricsAddon{Enabled: true},
		LocalPathProvisioner: topology.LocalPathAddon{Enabled: true},
	}
}
