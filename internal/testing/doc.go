// Package testing provides test builders and fixtures shared across packages.
//
//   - DescriptorBuilder: fluent builder for cluster descriptors
//   - Scenario fixtures: the canonical one-master/two-worker cluster
//   - TestContext: a context bounded for tests
//
// Usage:
//
//	d := testing.NewDescriptorBuilder().
//	    WithMaster("m1", "10.0.0.1").
//	    WithWorker("w1", "10.0.0.2").
//	    WithRuntime(topology.RuntimeDocker).
//	    Build()
package testing
