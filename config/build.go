package config

import (
	"fmt"
	"math/big"

	"arns/core/state"
	"arns/core/types"
	"arns/crypto"
	"arns/native/auction"
	"arns/native/common"
	"arns/native/demand"
	"arns/native/fees"
	"arns/native/names"
)

// Runtime bundles the engine settings derived from a loaded configuration.
type Runtime struct {
	Names   names.Config
	Genesis state.Genesis
	Pauses  common.StaticPauses
}

// Build parses the configured strings into exact engine values.
func (c *Config) Build() (*Runtime, error) {
	if err := ValidateConfig(c); err != nil {
		return nil, err
	}
	treasury, err := crypto.DecodeAddress(c.Treasury)
	if err != nil {
		return nil, fmt.Errorf("config: invalid Treasury: %w", err)
	}
	params, err := c.Pricing.params()
	if err != nil {
		return nil, err
	}
	demandSettings, err := c.Demand.settings()
	if err != nil {
		return nil, err
	}
	auctionSettings, err := c.Auction.settings()
	if err != nil {
		return nil, err
	}
	schedule := c.Fees.Clone()

	rules := names.Config{
		Treasury:                 treasury,
		GracePeriod:              c.Registry.GracePeriodSeconds,
		DefaultUndernames:        c.Registry.DefaultUndernames,
		MaxUndernames:            c.Registry.MaxUndernames,
		MaxLeaseYears:            c.Registry.MaxLeaseYears,
		MinimumNameLength:        c.Registry.MinimumNameLength,
		ShortNameUnlockTimestamp: c.Registry.ShortNameUnlockTimestamp,
		Fees:                     params,
		Demand:                   demandSettings,
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	genesis := state.Genesis{
		PeriodZeroBlockHeight: c.PeriodZeroBlockHeight,
		Demand:                demandSettings.Clone(),
		Fees:                  schedule,
		Auction:               auctionSettings,
		Balances:              make(map[string]*big.Int, len(c.Balances)),
		Reserved:              make(map[string]*types.ReservedName, len(c.Reserved)),
	}
	for addr, raw := range c.Balances {
		decoded, err := crypto.DecodeAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("balances: invalid address %q: %w", addr, err)
		}
		amount, err := parseUintAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("balances: %s: %w", addr, err)
		}
		genesis.Balances[decoded.String()] = amount
	}
	for name, reservation := range c.Reserved {
		genesis.Reserved[names.NormalizeName(name)] = &types.ReservedName{
			Target:       reservation.Target,
			EndTimestamp: reservation.EndTimestamp,
		}
	}

	return &Runtime{
		Names:   rules,
		Genesis: genesis,
		Pauses:  common.StaticPauses{"names": c.Pauses.Names},
	}, nil
}

func (p Pricing) params() (fees.Params, error) {
	annual, err := parseRat("pricing", "AnnualPercentageFee", p.AnnualPercentageFee)
	if err != nil {
		return fees.Params{}, err
	}
	leaseUndername, err := parseRat("pricing", "UndernameLeasePercentage", p.UndernameLeasePercentage)
	if err != nil {
		return fees.Params{}, err
	}
	permabuyUndername, err := parseRat("pricing", "UndernamePermabuyPercentage", p.UndernamePermabuyPercentage)
	if err != nil {
		return fees.Params{}, err
	}
	params := fees.Params{
		AnnualPercentageFee:         annual,
		PermabuyLeaseYears:          p.PermabuyLeaseYears,
		UndernameLeasePercentage:    leaseUndername,
		UndernamePermabuyPercentage: permabuyUndername,
		SecondsPerYear:              p.SecondsPerYear,
	}
	if err := params.Validate(); err != nil {
		return fees.Params{}, err
	}
	return params, nil
}

func (d Demand) settings() (demand.Settings, error) {
	var (
		out demand.Settings
		err error
	)
	out.PeriodBlockLength = d.PeriodBlockLength
	if out.BaseFactor, err = parseRat("demand", "BaseFactor", d.BaseFactor); err != nil {
		return demand.Settings{}, err
	}
	if out.MinFactor, err = parseRat("demand", "MinFactor", d.MinFactor); err != nil {
		return demand.Settings{}, err
	}
	if out.UpAdjustment, err = parseRat("demand", "UpAdjustment", d.UpAdjustment); err != nil {
		return demand.Settings{}, err
	}
	if out.DownAdjustment, err = parseRat("demand", "DownAdjustment", d.DownAdjustment); err != nil {
		return demand.Settings{}, err
	}
	out.Criteria = demand.Criteria(d.Criteria)
	out.Baseline = demand.Baseline(d.Baseline)
	out.Normalize()
	if err := out.Validate(); err != nil {
		return demand.Settings{}, err
	}
	return out, nil
}

func (a Auction) settings() (auction.Settings, error) {
	var (
		out auction.Settings
		err error
	)
	out.ID = a.SettingsID
	out.DecayInterval = a.DecayInterval
	out.AuctionDuration = a.Duration
	if out.DecayRate, err = parseRat("auction", "DecayRate", a.DecayRate); err != nil {
		return auction.Settings{}, err
	}
	if out.FloorPriceMultiplier, err = parseRat("auction", "FloorPriceMultiplier", a.FloorPriceMultiplier); err != nil {
		return auction.Settings{}, err
	}
	if out.StartPriceMultiplier, err = parseRat("auction", "StartPriceMultiplier", a.StartPriceMultiplier); err != nil {
		return auction.Settings{}, err
	}
	if err := out.Validate(); err != nil {
		return auction.Settings{}, err
	}
	return out, nil
}
