// Package async provides utilities for bounded parallel task execution with
// error collection.
//
// [RunParallel] executes independent operations concurrently under a
// concurrency limit and returns every failure. Connectivity probes use it to
// fan out over all nodes of a cluster.
package async
