package provisioning

import "github.com/autokube/provisioner/internal/provisioning/fault"

// Error is a classified provisioning failure. See package fault.
type Error = fault.Error

// Kind classifies a provisioning failure.
type Kind = fault.Kind

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	return fault.KindOf(err)
}
