package names

import (
	"fmt"

	"arns/crypto"
	"arns/native/demand"
	"arns/native/fees"
)

const (
	moduleName = "names"

	// DefaultGracePeriod is how long an expired lease stays renewable before
	// the name is released (three weeks).
	DefaultGracePeriod uint64 = 1_814_400
	// DefaultUndernames is the allowance every new record starts with.
	DefaultUndernames uint64 = 10
	// DefaultMaxUndernames caps the undername allowance of a single record.
	DefaultMaxUndernames uint64 = 10_000
	// DefaultMaxLeaseYears bounds both new leases and extensions.
	DefaultMaxLeaseYears uint64 = 5
	// DefaultMinimumNameLength is the shortest name open to everyone once the
	// short-name lock is in place.
	DefaultMinimumNameLength = 5
)

// Config holds the registry rules the orchestrator enforces.
type Config struct {
	Treasury                 crypto.Address
	GracePeriod              uint64
	DefaultUndernames        uint64
	MaxUndernames            uint64
	MaxLeaseYears            uint64
	MinimumNameLength        int
	ShortNameUnlockTimestamp uint64
	Fees                     fees.Params
	Demand                   demand.Settings
}

// DefaultConfig returns the genesis rules with proceeds routed to treasury.
func DefaultConfig(treasury crypto.Address) Config {
	return Config{
		Treasury:          treasury,
		GracePeriod:       DefaultGracePeriod,
		DefaultUndernames: DefaultUndernames,
		MaxUndernames:     DefaultMaxUndernames,
		MaxLeaseYears:     DefaultMaxLeaseYears,
		MinimumNameLength: DefaultMinimumNameLength,
		Fees:              fees.DefaultParams(),
		Demand:            demand.DefaultSettings(),
	}
}

// Validate ensures the rules are internally consistent.
func (c Config) Validate() error {
	if c.Treasury.IsZero() {
		return fmt.Errorf("names: treasury address required")
	}
	if c.DefaultUndernames == 0 {
		return fmt.Errorf("names: default undernames must be positive")
	}
	if c.MaxUndernames < c.DefaultUndernames {
		return fmt.Errorf("names: max undernames below default allowance")
	}
	if c.MaxLeaseYears == 0 {
		return fmt.Errorf("names: max lease years must be positive")
	}
	if c.MinimumNameLength < 1 {
		return fmt.Errorf("names: minimum name length must be positive")
	}
	if err := c.Fees.Validate(); err != nil {
		return err
	}
	return c.Demand.Validate()
}

func (c Config) clone() Config {
	clone := c
	clone.Fees = c.Fees.Clone()
	clone.Demand = c.Demand.Clone()
	return clone
}
