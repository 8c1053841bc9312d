package config

import (
	"fmt"
	"math/big"
	"strings"

	"arns/crypto"
	"arns/native/common"
)

var (
	MaxLeaseYearsCeiling = uint64(100)
)

// ValidateConfig checks the raw values before they are converted into engine
// settings. Build performs the semantic checks of each engine.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if _, err := crypto.DecodeAddress(cfg.Treasury); err != nil {
		return fmt.Errorf("config: invalid Treasury: %w", err)
	}
	if cfg.Registry.MaxLeaseYears == 0 || cfg.Registry.MaxLeaseYears > MaxLeaseYearsCeiling {
		return fmt.Errorf("registry: MaxLeaseYears must be between 1 and %d", MaxLeaseYearsCeiling)
	}
	if cfg.Registry.MaxUndernames < cfg.Registry.DefaultUndernames {
		return fmt.Errorf("registry: MaxUndernames < DefaultUndernames")
	}
	if cfg.Pricing.SecondsPerYear == 0 {
		return fmt.Errorf("pricing: SecondsPerYear must be positive")
	}
	if cfg.Demand.PeriodBlockLength == 0 {
		return fmt.Errorf("demand: PeriodBlockLength must be positive")
	}
	if cfg.Auction.DecayInterval == 0 || cfg.Auction.Duration == 0 {
		return fmt.Errorf("auction: DecayInterval and Duration must be positive")
	}
	if cfg.Fees.MaxNameLength() == 0 {
		return fmt.Errorf("fees: empty fee table")
	}
	for addr, amount := range cfg.Balances {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("balances: invalid address %q: %w", addr, err)
		}
		if _, err := parseUintAmount(amount); err != nil {
			return fmt.Errorf("balances: %s: %w", addr, err)
		}
	}
	for name, reservation := range cfg.Reserved {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("reserved: empty name")
		}
		if reservation.Target == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(reservation.Target); err != nil {
			return fmt.Errorf("reserved: %s: invalid target: %w", name, err)
		}
	}
	return nil
}

func parseUintAmount(value string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", value)
	}
	return amount, nil
}

func parseRat(section, field, value string) (*big.Rat, error) {
	r, err := common.ParseRat(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s.%s: %w", section, field, err)
	}
	return r, nil
}

// decimalString renders r as the shortest exact decimal, falling back to a
// fraction for non-terminating values.
func decimalString(r *big.Rat) string {
	if r == nil {
		return ""
	}
	for prec := 0; prec <= 27; prec++ {
		s := r.FloatString(prec)
		if parsed, ok := new(big.Rat).SetString(s); ok && parsed.Cmp(r) == 0 {
			return s
		}
	}
	return r.RatString()
}
