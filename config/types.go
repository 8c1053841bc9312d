package config

// Registry captures the name rules enforced by the names engine.
type Registry struct {
	GracePeriodSeconds       uint64 `toml:"GracePeriodSeconds"`
	DefaultUndernames        uint64 `toml:"DefaultUndernames"`
	MaxUndernames            uint64 `toml:"MaxUndernames"`
	MaxLeaseYears            uint64 `toml:"MaxLeaseYears"`
	MinimumNameLength        int    `toml:"MinimumNameLength"`
	ShortNameUnlockTimestamp uint64 `toml:"ShortNameUnlockTimestamp"`
}

// Pricing holds the constants that derive lease, permabuy and undername
// prices. Rates are decimal strings so they parse exactly.
type Pricing struct {
	AnnualPercentageFee         string `toml:"AnnualPercentageFee"`
	PermabuyLeaseYears          uint64 `toml:"PermabuyLeaseYears"`
	UndernameLeasePercentage    string `toml:"UndernameLeasePercentage"`
	UndernamePermabuyPercentage string `toml:"UndernamePermabuyPercentage"`
	SecondsPerYear              uint64 `toml:"SecondsPerYear"`
}

// Demand controls the demand factor adjustment.
type Demand struct {
	PeriodBlockLength uint64 `toml:"PeriodBlockLength"`
	BaseFactor        string `toml:"BaseFactor"`
	MinFactor         string `toml:"MinFactor"`
	UpAdjustment      string `toml:"UpAdjustment"`
	DownAdjustment    string `toml:"DownAdjustment"`
	Criteria          string `toml:"Criteria"`
	Baseline          string `toml:"Baseline"`
}

// Auction captures the genesis auction settings revision.
type Auction struct {
	SettingsID           string `toml:"SettingsID"`
	DecayInterval        uint64 `toml:"DecayInterval"`
	DecayRate            string `toml:"DecayRate"`
	Duration             uint64 `toml:"Duration"`
	FloorPriceMultiplier string `toml:"FloorPriceMultiplier"`
	StartPriceMultiplier string `toml:"StartPriceMultiplier"`
}

type Pauses struct {
	Names bool `toml:"Names"`
}

// Reservation seeds a reserved name at genesis.
type Reservation struct {
	Target       string `toml:"Target,omitempty"`
	EndTimestamp uint64 `toml:"EndTimestamp,omitempty"`
}
