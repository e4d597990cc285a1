// Package fault defines the error taxonomy of a provisioning run.
//
// Every stage reports failures as an [*Error] carrying a [Kind], so callers
// (CLI, run server, status reporter) can decide policy by kind without
// parsing messages.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a provisioning failure.
type Kind string

const (
	KindFetch       Kind = "fetch"
	KindMalformed   Kind = "malformed_descriptor"
	KindCredential  Kind = "credential"
	KindTopology    Kind = "topology"
	KindOverlay     Kind = "overlay"
	KindProbe       Kind = "probe"
	KindExecution   Kind = "execution"
	KindTimeout     Kind = "timeout"
	KindReport      Kind = "report"
	KindUnavailable Kind = "unavailable" // lock or prerequisite not satisfied
)

// Error is a classified provisioning failure.
type Error struct {
	Kind   Kind
	Stage  string // pipeline stage, filled in by the pipeline when empty
	Node   string // node name when the failure is node-scoped
	Err    error
	Output string // captured remote/tool output, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Node != "" {
		fmt.Fprintf(&b, " on node %s", e.Node)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf creates an Error of the given kind from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// OnNode creates a node-scoped Error.
func OnNode(kind Kind, node string, err error) *Error {
	return &Error{Kind: kind, Node: node, Err: err}
}

// WithOutput attaches captured output.
func (e *Error) WithOutput(output string) *Error {
	e.Output = output
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	if fe, ok := As(err); ok {
		return fe.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// All returns every *Error in err's tree, depth first. Joined errors are
// walked into; a fault's own cause is not.
func All(err error) []*Error {
	var out []*Error
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case nil:
		case *Error:
			out = append(out, e)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return out
}
