package types

import "errors"

// DefaultMaxLookupDepth bounds lookup-chain traversal when the config does
// not say otherwise.
const DefaultMaxLookupDepth = 5

// Config holds engine parameters. Zero values are filled in by
// ApplyDefaults; Validate rejects what cannot be defaulted.
type Config struct {
	DSN            string `json:"dsn" yaml:"dsn"`                           // PostgreSQL connection string
	StateDir       string `json:"state_dir" yaml:"state_dir"`               // directory for the local catalog store
	MaxLookupDepth int    `json:"max_lookup_depth" yaml:"max_lookup_depth"` // lookup chain bound, 0 means default
}

// Config validation errors.
var (
	ErrDSNEmpty           = errors.New("dsn must not be empty")
	ErrLookupDepthInvalid = errors.New("max lookup depth must not be negative")
)

// ApplyDefaults fills unset optional parameters.
func (c *Config) ApplyDefaults() {
	if c.MaxLookupDepth == 0 {
		c.MaxLookupDepth = DefaultMaxLookupDepth
	}
	if c.StateDir == "" {
		c.StateDir = "."
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.DSN == "" {
		return ErrDSNEmpty
	}
	if c.MaxLookupDepth < 0 {
		return ErrLookupDepthInvalid
	}
	return nil
}
