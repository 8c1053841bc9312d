package auction

import (
	"math/big"

	coreerrors "arns/core/errors"
	"arns/native/common"
)

const opMinimumBid = "auction.minimumBid"

// MinimumBid returns the lowest bid that wins the auction at height.
//
// The price decays geometrically from StartPrice by DecayRate once per
// DecayInterval blocks, is rounded half up once, and is clamped into
// [FloorPrice, StartPrice]. From EndHeight onwards it is FloorPrice.
func MinimumBid(a *Auction, height uint64) (*big.Int, error) {
	if a == nil || a.StartPrice == nil || a.FloorPrice == nil {
		return nil, coreerrors.New(coreerrors.KindInvalidState, opMinimumBid, "auction not initialised")
	}
	if height < a.StartHeight {
		return nil, coreerrors.Newf(coreerrors.KindInvalidState, opMinimumBid,
			"height %d precedes auction start %d", height, a.StartHeight)
	}
	if a.Expired(height) {
		return new(big.Int).Set(a.FloorPrice), nil
	}
	interval := a.Settings.DecayInterval
	if interval == 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidState, opMinimumBid, "decay interval must be positive")
	}
	intervals := (height - a.StartHeight) / interval

	retained := new(big.Rat).Sub(big.NewRat(1, 1), common.CloneRat(a.Settings.DecayRate))
	price := new(big.Rat).SetInt(a.StartPrice)
	price.Mul(price, common.PowRat(retained, intervals))

	bid := common.RoundHalfUp(price)
	if bid.Cmp(a.FloorPrice) < 0 {
		bid.Set(a.FloorPrice)
	}
	if bid.Cmp(a.StartPrice) > 0 {
		bid.Set(a.StartPrice)
	}
	return bid, nil
}
