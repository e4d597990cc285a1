// Package topology holds the strongly typed cluster descriptor fetched from
// the control plane and validates it at the boundary.
//
// The control plane serves loosely typed JSON. [Decode] checks required
// fields on the raw document first, so a missing field is reported as such
// instead of surfacing later as an empty string.
package topology
