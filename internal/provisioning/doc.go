// Package provisioning provides shared types, interfaces, and the phase
// pipeline for provisioning a Kubernetes cluster on existing machines.
//
// # Subpackages
//
//   - fault/: error taxonomy (Kind, node-scoped Error)
//   - credentials/: per-node SSH credentials and key files
//   - inventory/: role-grouped Kubespray inventory
//   - overlay/: Kubespray group_vars overlays from the descriptor
//   - probe/: concurrent SSH connectivity checks
//   - execute/: Kubespray or Helm installation and node verification
//   - report/: control-plane status updates and report persistence
//
// # Core Types
//
// Context carries configuration, state, collaborators, and the observer.
// Phase defines a provisioning step with Name() and Provision() methods.
// State accumulates results from each phase (descriptor, credentials,
// inventory, probe outcome, execution result). Report summarizes a run.
package provisioning
