package colorspace

import "errors"

// Error classes returned by the conversion pipeline. Callers match them with
// errors.Is; the concrete error carries the cause chain.
var (
	// ErrAllocation reports a cache, buffer or link that could not be built.
	ErrAllocation = errors.New("color allocation failed")
	// ErrProfileBuild reports a profile that could not be synthesized or
	// was rejected by the CMM.
	ErrProfileBuild = errors.New("color profile build failed")
	// ErrMissingResource reports a missing device profile or link.
	ErrMissingResource = errors.New("color resource missing")
	// ErrDomain reports parameters or device properties outside what an
	// operation supports.
	ErrDomain = errors.New("color domain error")
)
