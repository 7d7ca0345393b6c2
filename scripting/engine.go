// Package scripting hosts JavaScript hooks that may replace colors before
// color management runs.
package scripting

import (
	"context"
)

// Engine represents a scripting engine (e.g., JavaScript).
type Engine interface {
	// Execute runs a script; cancelling ctx interrupts it.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterHost exposes the host callbacks to scripts as the global
	// object "host".
	RegisterHost(host Host) error
}

// Host is what scripts may call back into.
type Host interface {
	// Log records a message from the script.
	Log(message string)
}
