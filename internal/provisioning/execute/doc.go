// Package execute installs Kubernetes on the probed target hosts.
//
// Two strategies exist. Kubespray runs the cluster.yml playbook against the
// generated inventory in a supervised subprocess. Helm bootstrap reads the
// admin kubeconfig from the first control-plane node over SSH and installs
// a chart (KubeSphere ks-core by default) with the Helm SDK. Either way the
// nodes are optionally verified through the API server afterwards; problems
// found there are warnings, never failures.
package execute
