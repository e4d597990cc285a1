// Package helm installs packaged charts into a freshly provisioned cluster.
//
// The client works from in-memory kubeconfig bytes fetched off a control-plane
// node, loads a chart archive from a URL or local path, and installs or
// upgrades the release. Values helpers merge and serialize the plain maps
// used both as chart values and as installer group variables.
package helm
