package fees

import (
	"fmt"
	"math/big"

	"arns/native/common"
)

// SecondsPerYear is the lease year used for expiry and proration.
const SecondsPerYear uint64 = 31_536_000

// Params holds the constants that derive lease, permabuy and undername prices
// from the base fee table.
type Params struct {
	// AnnualPercentageFee is the share of the base fee charged per lease year.
	AnnualPercentageFee *big.Rat
	// PermabuyLeaseYears is the number of annual renewals a permabuy costs.
	PermabuyLeaseYears uint64
	// UndernameLeasePercentage is charged per undername per remaining lease year.
	UndernameLeasePercentage *big.Rat
	// UndernamePermabuyPercentage is charged per undername per permabuy year.
	UndernamePermabuyPercentage *big.Rat
	SecondsPerYear              uint64
}

// DefaultParams returns the genesis pricing constants.
func DefaultParams() Params {
	return Params{
		AnnualPercentageFee:         common.MustRat("0.2"),
		PermabuyLeaseYears:          10,
		UndernameLeasePercentage:    common.MustRat("0.001"),
		UndernamePermabuyPercentage: common.MustRat("0.005"),
		SecondsPerYear:              SecondsPerYear,
	}
}

// Clone returns a deep copy of the params.
func (p Params) Clone() Params {
	clone := p
	clone.AnnualPercentageFee = common.CloneRat(p.AnnualPercentageFee)
	clone.UndernameLeasePercentage = common.CloneRat(p.UndernameLeasePercentage)
	clone.UndernamePermabuyPercentage = common.CloneRat(p.UndernamePermabuyPercentage)
	return clone
}

// Validate ensures every constant is usable.
func (p Params) Validate() error {
	if p.AnnualPercentageFee == nil || p.AnnualPercentageFee.Sign() <= 0 {
		return fmt.Errorf("fees: annual percentage fee must be positive")
	}
	if p.PermabuyLeaseYears == 0 {
		return fmt.Errorf("fees: permabuy lease years must be positive")
	}
	if p.UndernameLeasePercentage == nil || p.UndernameLeasePercentage.Sign() <= 0 {
		return fmt.Errorf("fees: undername lease percentage must be positive")
	}
	if p.UndernamePermabuyPercentage == nil || p.UndernamePermabuyPercentage.Sign() <= 0 {
		return fmt.Errorf("fees: undername permabuy percentage must be positive")
	}
	if p.SecondsPerYear == 0 {
		return fmt.Errorf("fees: seconds per year must be positive")
	}
	return nil
}
