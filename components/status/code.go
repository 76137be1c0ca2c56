package status

import "errors"

var (
	// StatusInvalidArgument indicates a malformed, oversized or missing input.
	StatusInvalidArgument = errors.New("invalid argument")

	// StatusInvalidState indicates that an operation can't be performed due to invalid state.
	StatusInvalidState = errors.New("invalid state")

	// StatusNoMemory indicates that a required allocation failed.
	StatusNoMemory = errors.New("out of memory")

	// StatusOperationFailed indicates that the discovery engine failed to handle an operation.
	StatusOperationFailed = errors.New("engine operation failed")

	// StatusUnknownResource indicates that a delivery referenced a resource that
	// can't be identified, e.g. a resolve result without an address.
	StatusUnknownResource = errors.New("unknown resource")

	// StatusNotSupported indicates that an operation isn't supported.
	StatusNotSupported = errors.New("not implemented")

	// StatusNoData indicates that the requested data doesn't exist.
	StatusNoData = errors.New("no data")

	// StatusTimeout indicates that an operation can't be finished in time.
	StatusTimeout = errors.New("operation timed out")
)
