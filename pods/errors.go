package pods

import "errors"

var (
	// ErrBadShape is returned when a flat buffer does not divide into rows of the requested width.
	ErrBadShape = errors.New("pods: bad shapes")
	// ErrUnknownReduce is returned for an unsupported ReduceKind.
	ErrUnknownReduce = errors.New("pods: unknown reduce kind")
)
