// Package k8s talks to a provisioned cluster's API server to confirm that
// the nodes the installer was asked to set up have joined and report Ready.
package k8s
