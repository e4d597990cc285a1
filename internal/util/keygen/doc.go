// Package keygen generates and inspects SSH key pairs.
//
// Private keys are produced in PEM format and public keys in OpenSSH
// authorized_keys format. [Fingerprint] validates key material supplied by
// the control plane before it is written to disk.
package keygen
