// Package report delivers a run's terminal status to the control plane and
// persists the run report locally and, optionally, to object storage.
//
// Delivery failures are returned as KindReport errors for the caller to log
// and record. They never undo provisioning.
package report
