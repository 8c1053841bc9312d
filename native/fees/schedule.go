package fees

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	coreerrors "arns/core/errors"
)

// DefaultMaxNameLength is the number of tiers in the genesis fee table.
const DefaultMaxNameLength = 51

// Schedule maps name length onto the base registration fee. Tier i holds the
// fee for names of length i+1; longer names pay the last tier.
type Schedule struct {
	tiers []*big.Int
}

// NewSchedule builds a schedule from an ordered list of tiers starting at
// length one.
func NewSchedule(tiers []*big.Int) (*Schedule, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("fees: schedule requires at least one tier")
	}
	cloned := make([]*big.Int, len(tiers))
	for i, fee := range tiers {
		if fee == nil || fee.Sign() < 0 {
			return nil, fmt.Errorf("fees: tier %d must be non-negative", i+1)
		}
		cloned[i] = new(big.Int).Set(fee)
	}
	return &Schedule{tiers: cloned}, nil
}

// DefaultSchedule returns the genesis fee table.
func DefaultSchedule() *Schedule {
	head := []int64{
		5_000_000, 2_500_000, 2_000_000, 1_500_000, 1_250_000, 1_000_000, 900_000,
		800_000, 600_000, 500_000, 450_000, 400_000, 300_000,
	}
	tiers := make([]*big.Int, DefaultMaxNameLength)
	for i := range tiers {
		if i < len(head) {
			tiers[i] = big.NewInt(head[i])
			continue
		}
		tiers[i] = big.NewInt(250_000)
	}
	return &Schedule{tiers: tiers}
}

// MaxNameLength reports the number of tiers.
func (s *Schedule) MaxNameLength() int {
	if s == nil {
		return 0
	}
	return len(s.tiers)
}

// BaseFee returns the fee tier for a name of the supplied length.
func (s *Schedule) BaseFee(nameLength int) (*big.Int, error) {
	if s == nil || len(s.tiers) == 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidState, "fees.baseFee", "fee schedule not configured")
	}
	if nameLength < 1 {
		return nil, coreerrors.Newf(coreerrors.KindInvalidInput, "fees.baseFee", "name length %d out of range", nameLength)
	}
	if nameLength > len(s.tiers) {
		nameLength = len(s.tiers)
	}
	return new(big.Int).Set(s.tiers[nameLength-1]), nil
}

// BaseFeeForName measures the name in characters and returns its tier.
func (s *Schedule) BaseFeeForName(name string) (*big.Int, error) {
	return s.BaseFee(utf8.RuneCountInString(name))
}

// Tiers returns a copy of the fee table.
func (s *Schedule) Tiers() []*big.Int {
	if s == nil {
		return nil
	}
	out := make([]*big.Int, len(s.tiers))
	for i, fee := range s.tiers {
		out[i] = new(big.Int).Set(fee)
	}
	return out
}

// Clone returns a deep copy of the schedule to avoid aliasing tiers between
// registry snapshots.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	return &Schedule{tiers: s.Tiers()}
}
