// Package orchestration coordinates one provisioning run of a cluster.
//
// The Orchestrator wraps the phase pipeline from internal/provisioning with
// everything that must happen around it, whatever the pipeline's outcome:
//
//  1. Lock - serialize runs of the same cluster on <work-dir>/<cluster>/.lock
//  2. Pipeline - fetch, validate, credentials, inventory, overlay, probe, execute
//  3. Cleanup - remove materialized key files
//  4. Report - post the terminal status to the control plane
//  5. Persist - write report.json and optionally archive it to S3
//
// # Usage
//
//	orch, err := orchestration.NewFromConfig(ctx, cfg, orchestration.Options{})
//	report, err := orch.Run(ctx, orchestration.Request{ClusterID: "42"})
//
// Re-running a failed cluster is safe: the installers are idempotent and the
// inventory directory is rewritten on every run.
package orchestration
