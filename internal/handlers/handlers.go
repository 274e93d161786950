// Package handlers implements the request/response operations that map
// directly onto vendor calls. Each capability group registers itself into
// a dispatch table.
package handlers

import (
	"github.com/rs/zerolog"

	"dabbridge/internal/dab"
	"dabbridge/internal/rdk"
)

// DeviceSettings is the configuration surface the handlers read
type DeviceSettings interface {
	Identity
	KeySource
	Platform
}

// Deps are the collaborators shared by the handler groups
type Deps struct {
	RPC       rdk.Caller
	Lifecycle AppLifecycle
	Settings  DeviceSettings
}

// Register adds every handler group to t. extra names operations served
// outside the table (telemetry) so operations/list can report them.
func Register(t dab.Table, deps Deps, extra ...string) {
	NewApplications(deps.Lifecycle).Register(t)
	NewDevice(deps.RPC, deps.Settings, t, extra...).Register(t)
	NewInput(deps.RPC, deps.Settings).Register(t)
	NewSystem(deps.RPC, deps.Settings).Register(t)
}

// vendorError logs a failed vendor call and reports it as an internal error
func vendorError(log zerolog.Logger, method rdk.Method, err error) error {
	log.Warn().
		Err(err).
		Str("method", string(method)).
		Msg("Vendor call failed")
	return dab.Internal("%v", err)
}
