// Package probe checks that every inventory host accepts an SSH login with
// its materialized credential before anything is installed.
//
// All hosts are probed concurrently within a bound. Every host gets a result,
// successful or not. A failed control-plane host fails the run; failed workers
// are excluded from the installation targets.
package probe
