// Package naming provides consistent names for the files, environment
// variables and object keys a provisioning run produces.
//
// Synthesized node names follow {role}{N} (e.g. master1, worker2). Names
// that end up in paths or environment variables are sanitized so a hostile
// hostname cannot escape the cluster directory.
package naming
