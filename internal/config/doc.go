// Package config defines the process-wide runtime configuration of the
// provisioner.
//
// [Load] resolves defaults, an optional YAML file and AUTOKUBE_* environment
// variables exactly once at startup. The resulting [Config] is passed
// explicitly to the components that need it; nothing below the command
// layer reads the environment.
package config
