// Package overlay derives Kubespray group variables from a cluster descriptor
// and merges them onto the installer's sample templates.
//
// Each template is merged shallowly: keys the descriptor maps replace the
// template's values, every other template key is kept as shipped. The core
// template is load-bearing and must exist. Addon templates are optional; a
// missing one only produces a warning.
package overlay
