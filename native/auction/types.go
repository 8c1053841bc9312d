package auction

import (
	"fmt"
	"math/big"
	"strings"

	coreerrors "arns/core/errors"
	"arns/core/types"
	"arns/crypto"
	"arns/native/common"
)

const (
	DefaultDecayInterval   uint64 = 30
	DefaultAuctionDuration uint64 = 5040
	DefaultSettingsID             = "genesis"
)

// Settings describe the decay curve and price multipliers of an auction. Every
// auction freezes a copy of the settings active when it was created.
type Settings struct {
	ID                   string
	DecayInterval        uint64
	DecayRate            *big.Rat
	AuctionDuration      uint64
	FloorPriceMultiplier *big.Rat
	StartPriceMultiplier *big.Rat
}

// DefaultSettings returns the genesis auction configuration: 2% decay every 30
// blocks over roughly one week, starting at 200x the floor.
func DefaultSettings() Settings {
	return Settings{
		ID:                   DefaultSettingsID,
		DecayInterval:        DefaultDecayInterval,
		DecayRate:            common.MustRat("0.02"),
		AuctionDuration:      DefaultAuctionDuration,
		FloorPriceMultiplier: common.MustRat("1"),
		StartPriceMultiplier: common.MustRat("200"),
	}
}

func (s Settings) Clone() Settings {
	clone := s
	clone.DecayRate = common.CloneRat(s.DecayRate)
	clone.FloorPriceMultiplier = common.CloneRat(s.FloorPriceMultiplier)
	clone.StartPriceMultiplier = common.CloneRat(s.StartPriceMultiplier)
	return clone
}

// Validate ensures the settings always yield FloorPrice <= StartPrice and a
// decay curve that never increases.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("auction: settings id required")
	}
	if s.DecayInterval == 0 {
		return fmt.Errorf("auction: decay interval must be positive")
	}
	if s.AuctionDuration == 0 {
		return fmt.Errorf("auction: duration must be positive")
	}
	if s.DecayRate == nil || s.DecayRate.Sign() < 0 || s.DecayRate.Cmp(big.NewRat(1, 1)) >= 0 {
		return fmt.Errorf("auction: decay rate must be in [0, 1)")
	}
	if s.FloorPriceMultiplier == nil || s.FloorPriceMultiplier.Sign() <= 0 {
		return fmt.Errorf("auction: floor price multiplier must be positive")
	}
	if s.StartPriceMultiplier == nil || s.StartPriceMultiplier.Cmp(s.FloorPriceMultiplier) < 0 {
		return fmt.Errorf("auction: start price multiplier must not be below the floor multiplier")
	}
	return nil
}

// SettingsHistory keeps every settings revision so existing auctions can be
// audited against the snapshot they froze.
type SettingsHistory struct {
	Current string
	History []Settings
}

// NewSettingsHistory seeds a history whose current revision is initial.
func NewSettingsHistory(initial Settings) *SettingsHistory {
	return &SettingsHistory{Current: initial.ID, History: []Settings{initial.Clone()}}
}

// Active returns a copy of the current settings revision.
func (h *SettingsHistory) Active() (Settings, error) {
	if h == nil {
		return Settings{}, coreerrors.New(coreerrors.KindInvalidState, "auction.settings", "settings history not initialised")
	}
	for _, s := range h.History {
		if s.ID == h.Current {
			return s.Clone(), nil
		}
	}
	return Settings{}, coreerrors.Newf(coreerrors.KindInvalidState, "auction.settings", "current settings %q not found in history", h.Current)
}

// Append records a new revision and makes it current.
func (h *SettingsHistory) Append(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	for _, existing := range h.History {
		if existing.ID == s.ID {
			return fmt.Errorf("auction: settings %q already recorded", s.ID)
		}
	}
	h.History = append(h.History, s.Clone())
	h.Current = s.ID
	return nil
}

func (h *SettingsHistory) Clone() *SettingsHistory {
	if h == nil {
		return nil
	}
	clone := &SettingsHistory{Current: h.Current, History: make([]Settings, len(h.History))}
	for i, s := range h.History {
		clone.History[i] = s.Clone()
	}
	return clone
}

// Auction is an open Dutch auction for a single name. The initiator's floor
// price is held in escrow until the auction resolves.
type Auction struct {
	Name         string
	Initiator    crypto.Address
	Type         types.RecordType
	ContractTxID string
	// Years is zero for permabuy auctions.
	Years       uint64
	StartHeight uint64
	StartPrice  *big.Int
	FloorPrice  *big.Int
	Settings    Settings
}

func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	clone := *a
	clone.StartPrice = common.CloneInt(a.StartPrice)
	clone.FloorPrice = common.CloneInt(a.FloorPrice)
	clone.Settings = a.Settings.Clone()
	return &clone
}

// EndHeight is the first height at which the auction settles at its floor.
func (a *Auction) EndHeight() uint64 {
	return a.StartHeight + a.Settings.AuctionDuration
}

// Expired reports whether the decay window has fully elapsed.
func (a *Auction) Expired(height uint64) bool {
	return height >= a.EndHeight()
}
