// Package ssh provides an SSH client for executing commands on cluster nodes.
//
// The client authenticates with either a private key or a password, dials
// with the caller's context, and aborts running commands when that context
// ends. Secrets such as sudo passwords are passed on the session's stdin and
// never become part of a command string.
//
// Host key verification is disabled by default: nodes are freshly installed
// machines whose keys are not known in advance. Set HostKeyCallback to verify.
package ssh
