package fees

import (
	"math/big"

	coreerrors "arns/core/errors"
	"arns/core/types"
	"arns/native/common"
)

// Calculator derives exact (unrounded) costs from a fee schedule. Costs are
// scaled by the demand factor and rounded exactly once by Price.
type Calculator struct {
	schedule *Schedule
	params   Params
}

// NewCalculator binds a schedule and pricing constants.
func NewCalculator(schedule *Schedule, params Params) *Calculator {
	return &Calculator{schedule: schedule, params: params.Clone()}
}

// Params exposes the pricing constants in use.
func (c *Calculator) Params() Params {
	return c.params.Clone()
}

func (c *Calculator) baseFee(name string) (*big.Rat, error) {
	fee, err := c.schedule.BaseFeeForName(name)
	if err != nil {
		return nil, err
	}
	return new(big.Rat).SetInt(fee), nil
}

// AnnualRenewalCost is base × AnnualPercentageFee × years.
func (c *Calculator) AnnualRenewalCost(name string, years *big.Rat) (*big.Rat, error) {
	base, err := c.baseFee(name)
	if err != nil {
		return nil, err
	}
	cost := new(big.Rat).Mul(base, c.params.AnnualPercentageFee)
	return cost.Mul(cost, years), nil
}

// LeaseCost is the base fee plus the requested years of renewal.
func (c *Calculator) LeaseCost(name string, years uint64) (*big.Rat, error) {
	if years == 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, "fees.leaseCost", "lease years must be positive")
	}
	base, err := c.baseFee(name)
	if err != nil {
		return nil, err
	}
	renewal, err := c.AnnualRenewalCost(name, new(big.Rat).SetUint64(years))
	if err != nil {
		return nil, err
	}
	return base.Add(base, renewal), nil
}

// PermabuyCost pegs a perpetual purchase to PermabuyLeaseYears of renewals.
func (c *Calculator) PermabuyCost(name string) (*big.Rat, error) {
	return c.AnnualRenewalCost(name, new(big.Rat).SetUint64(c.params.PermabuyLeaseYears))
}

// RegistrationCost selects the lease or permabuy formula.
func (c *Calculator) RegistrationCost(name string, recordType types.RecordType, years uint64) (*big.Rat, error) {
	switch recordType {
	case types.RecordTypePermabuy:
		return c.PermabuyCost(name)
	case types.RecordTypeLease:
		return c.LeaseCost(name, years)
	default:
		return nil, coreerrors.Newf(coreerrors.KindInvalidInput, "fees.registrationCost", "unknown record type %q", recordType)
	}
}

// ExtensionCost is the annual renewal for the added years.
func (c *Calculator) ExtensionCost(name string, years uint64) (*big.Rat, error) {
	if years == 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, "fees.extensionCost", "extension years must be positive")
	}
	return c.AnnualRenewalCost(name, new(big.Rat).SetUint64(years))
}

// UndernameCost prices qty additional undernames. Leases are prorated over the
// exact remaining term; permabuys pay PermabuyLeaseYears at the higher rate.
func (c *Calculator) UndernameCost(name string, qty uint64, record *types.Record, now uint64) (*big.Rat, error) {
	if qty == 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, "fees.undernameCost", "quantity must be positive")
	}
	if record == nil {
		return nil, coreerrors.New(coreerrors.KindNotFound, "fees.undernameCost", "record not found")
	}
	base, err := c.baseFee(name)
	if err != nil {
		return nil, err
	}
	var (
		rate  *big.Rat
		years *big.Rat
	)
	switch record.Type {
	case types.RecordTypePermabuy:
		rate = c.params.UndernamePermabuyPercentage
		years = new(big.Rat).SetUint64(c.params.PermabuyLeaseYears)
	case types.RecordTypeLease:
		if record.EndTimestamp <= now {
			return nil, coreerrors.New(coreerrors.KindInvalidInput, "fees.undernameCost", "lease has no remaining term")
		}
		rate = c.params.UndernameLeasePercentage
		years = new(big.Rat).SetFrac(
			new(big.Int).SetUint64(record.EndTimestamp-now),
			new(big.Int).SetUint64(c.params.SecondsPerYear),
		)
	default:
		return nil, coreerrors.Newf(coreerrors.KindInvalidState, "fees.undernameCost", "unknown record type %q", record.Type)
	}
	cost := new(big.Rat).Mul(base, rate)
	cost.Mul(cost, new(big.Rat).SetUint64(qty))
	return cost.Mul(cost, years), nil
}

// Price applies the ray-scaled demand factor and any further multipliers to
// an exact cost and rounds half up once.
func Price(cost *big.Rat, demandFactor *big.Int, multipliers ...*big.Rat) *big.Int {
	if cost == nil {
		return big.NewInt(0)
	}
	total := new(big.Rat).Mul(cost, common.RayToRat(demandFactor))
	for _, m := range multipliers {
		if m == nil {
			continue
		}
		total.Mul(total, m)
	}
	return common.RoundHalfUp(total)
}
