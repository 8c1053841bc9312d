package names

import (
	"math/big"

	coreerrors "arns/core/errors"
	"arns/core/state"
	"arns/core/types"
	"arns/crypto"
	"arns/native/auction"
	"arns/native/fees"
)

const opQuote = "names.quote"

// Quote prices cmd as if it were processed at block without changing reg.
// For auction bids it returns the current required minimum of an open
// auction, or the floor price a new auction would escrow.
func (e *Engine) Quote(reg *state.Registry, caller crypto.Address, block types.BlockContext, cmd Command) (*big.Int, error) {
	x, err := e.begin(reg, caller, block)
	if err != nil {
		return nil, err
	}
	if _, err := e.tick(x); err != nil {
		return nil, err
	}
	calc := e.calculator(x.reg)
	factor := x.reg.DemandFactor()

	switch c := cmd.(type) {
	case BuyRecord:
		name, err := requireName(opQuote, c.Name)
		if err != nil {
			return nil, err
		}
		recordType, err := parseType(opQuote, c.Type)
		if err != nil {
			return nil, err
		}
		years, err := e.leaseYears(opQuote, recordType, c.Years)
		if err != nil {
			return nil, err
		}
		cost, err := calc.RegistrationCost(name, recordType, years)
		if err != nil {
			return nil, err
		}
		return fees.Price(cost, factor), nil
	case ExtendRecord:
		name, err := requireName(opQuote, c.Name)
		if err != nil {
			return nil, err
		}
		if _, _, err := e.checkExtension(x, opQuote, name, c.Years); err != nil {
			return nil, err
		}
		cost, err := calc.ExtensionCost(name, c.Years)
		if err != nil {
			return nil, err
		}
		return fees.Price(cost, factor), nil
	case IncreaseUndernameCount:
		name, err := requireName(opQuote, c.Name)
		if err != nil {
			return nil, err
		}
		if c.Qty == 0 {
			return nil, coreerrors.New(coreerrors.KindInvalidInput, opQuote, "quantity must be positive")
		}
		record, ok := x.reg.GetRecord(name)
		if !ok {
			return nil, coreerrors.Newf(coreerrors.KindNotFound, opQuote, "name %q is not registered", name)
		}
		cost, err := calc.UndernameCost(name, c.Qty, record, block.Timestamp)
		if err != nil {
			return nil, err
		}
		return fees.Price(cost, factor), nil
	case SubmitAuctionBid:
		name, err := requireName(opQuote, c.Name)
		if err != nil {
			return nil, err
		}
		if open, ok := x.reg.GetAuction(name); ok {
			return auction.MinimumBid(open, block.Height)
		}
		recordType, err := parseType(opQuote, c.Type)
		if err != nil {
			return nil, err
		}
		years, err := e.leaseYears(opQuote, recordType, c.Years)
		if err != nil {
			return nil, err
		}
		settings, err := x.reg.AuctionSettingsHistory().Active()
		if err != nil {
			return nil, err
		}
		cost, err := calc.RegistrationCost(name, recordType, years)
		if err != nil {
			return nil, err
		}
		return fees.Price(cost, factor, settings.FloorPriceMultiplier), nil
	default:
		return nil, coreerrors.Newf(coreerrors.KindInvalidInput, opQuote, "unsupported command %T", cmd)
	}
}
