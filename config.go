package hfiemu

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tetratelabs/hfiemu/internal/buildoptions"
	"github.com/tetratelabs/hfiemu/internal/features"
	"github.com/tetratelabs/hfiemu/internal/platform"
	"github.com/tetratelabs/hfiemu/internal/reservation"
)

// Config controls how an Emulation reserves memory and reports faults, with
// the default implementation as NewConfig.
//
// Config is immutable: each With method returns a new instance.
type Config struct {
	logger          logrus.FieldLogger
	registerer      prometheus.Registerer
	terminate       func(code int)
	reportConflicts bool
	emulate         bool
	space           reservation.AddressSpace
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &Config{
	logger:    logrus.StandardLogger(),
	terminate: os.Exit,
	emulate:   buildoptions.EmulationEnabled,
	space:     platform.Host{},
}

// clone ensures all fields are copied even if nil.
func (c *Config) clone() *Config {
	ret := *c
	return &ret
}

// NewConfig returns the default Config.
//
// Notes:
//   - Emulation is on only in binaries built with the "hfi_emulation" tag.
//   - Conflict reports are on when HFIEMUFEATURES contains "procmaps".
func NewConfig() *Config {
	ret := defaultConfig.clone()
	ret.reportConflicts = features.Have(features.ProcMaps)
	return ret
}

// WithLogger sets the logger for reservation lifecycle messages and fatal
// fault diagnostics. Defaults to logrus.StandardLogger.
func (c *Config) WithLogger(logger logrus.FieldLogger) *Config {
	ret := c.clone()
	ret.logger = logger
	return ret
}

// WithMetrics registers the reservation and fault metrics with reg. Defaults
// to no metrics.
func (c *Config) WithMetrics(reg prometheus.Registerer) *Config {
	ret := c.clone()
	ret.registerer = reg
	return ret
}

// WithTerminator replaces os.Exit, which is called after a fatal fault is
// logged. A terminator that returns lets the guarded call return a
// *FatalFaultError instead; only tests should do that.
func (c *Config) WithTerminator(terminate func(code int)) *Config {
	ret := c.clone()
	ret.terminate = terminate
	return ret
}

// WithConflictReport controls whether a failed reservation names the
// mappings that occupy the low 4GiB, on platforms with a mapping table.
func (c *Config) WithConflictReport(enabled bool) *Config {
	ret := c.clone()
	ret.reportConflicts = enabled
	return ret
}

// withEmulation overrides the build tag.
func (c *Config) withEmulation(enabled bool) *Config {
	ret := c.clone()
	ret.emulate = enabled
	return ret
}

// withAddressSpace replaces the real address space.
func (c *Config) withAddressSpace(space reservation.AddressSpace) *Config {
	ret := c.clone()
	ret.space = space
	return ret
}
