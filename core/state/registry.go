package state

import (
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"arns/core/types"
	"arns/native/auction"
	"arns/native/demand"
	"arns/native/fees"
)

// Registry is the complete name-registry state. Engines operate on a clone and
// the caller swaps it in only when the whole command succeeded.
type Registry struct {
	Records         map[string]*types.Record
	Reserved        map[string]*types.ReservedName
	Auctions        map[string]*auction.Auction
	Balances        map[string]*uint256.Int
	DemandFactoring *demand.State
	Fees            *fees.Schedule
	AuctionSettings *auction.SettingsHistory
}

// Genesis seeds a new registry.
type Genesis struct {
	PeriodZeroBlockHeight uint64
	Demand                demand.Settings
	Fees                  *fees.Schedule
	Auction               auction.Settings
	Balances              map[string]*big.Int
	Reserved              map[string]*types.ReservedName
}

// NewRegistry builds the genesis registry. Missing components fall back to
// their package defaults.
func NewRegistry(genesis Genesis) (*Registry, error) {
	demandSettings := genesis.Demand
	if demandSettings.BaseFactor == nil {
		demandSettings = demand.DefaultSettings()
	}
	schedule := genesis.Fees
	if schedule == nil {
		schedule = fees.DefaultSchedule()
	}
	auctionSettings := genesis.Auction
	if auctionSettings.ID == "" {
		auctionSettings = auction.DefaultSettings()
	}
	if err := auctionSettings.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{
		Records:         make(map[string]*types.Record),
		Reserved:        make(map[string]*types.ReservedName),
		Auctions:        make(map[string]*auction.Auction),
		Balances:        make(map[string]*uint256.Int),
		DemandFactoring: demand.NewState(genesis.PeriodZeroBlockHeight, demandSettings),
		Fees:            schedule.Clone(),
		AuctionSettings: auction.NewSettingsHistory(auctionSettings),
	}
	for _, addr := range sortedKeys(genesis.Balances) {
		if err := r.setBalanceKey(addr, genesis.Balances[addr]); err != nil {
			return nil, err
		}
	}
	for name, reservation := range genesis.Reserved {
		r.Reserved[name] = reservation.Clone()
	}
	return r, nil
}

// Clone returns a deep copy that shares no mutable memory with r.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := &Registry{
		Records:         make(map[string]*types.Record, len(r.Records)),
		Reserved:        make(map[string]*types.ReservedName, len(r.Reserved)),
		Auctions:        make(map[string]*auction.Auction, len(r.Auctions)),
		Balances:        make(map[string]*uint256.Int, len(r.Balances)),
		DemandFactoring: r.DemandFactoring.Clone(),
		Fees:            r.Fees.Clone(),
		AuctionSettings: r.AuctionSettings.Clone(),
	}
	for name, record := range r.Records {
		clone.Records[name] = record.Clone()
	}
	for name, reservation := range r.Reserved {
		clone.Reserved[name] = reservation.Clone()
	}
	for name, a := range r.Auctions {
		clone.Auctions[name] = a.Clone()
	}
	for addr, balance := range r.Balances {
		clone.Balances[addr] = balance.Clone()
	}
	return clone
}

func (r *Registry) GetRecord(name string) (*types.Record, bool) {
	record, ok := r.Records[name]
	return record, ok
}

func (r *Registry) PutRecord(name string, record *types.Record) {
	r.Records[name] = record
}

func (r *Registry) DeleteRecord(name string) {
	delete(r.Records, name)
}

func (r *Registry) GetReserved(name string) (*types.ReservedName, bool) {
	reservation, ok := r.Reserved[name]
	return reservation, ok
}

func (r *Registry) PutReserved(name string, reservation *types.ReservedName) {
	r.Reserved[name] = reservation
}

func (r *Registry) DeleteReserved(name string) {
	delete(r.Reserved, name)
}

func (r *Registry) GetAuction(name string) (*auction.Auction, bool) {
	a, ok := r.Auctions[name]
	return a, ok
}

func (r *Registry) PutAuction(a *auction.Auction) {
	r.Auctions[a.Name] = a
}

func (r *Registry) DeleteAuction(name string) {
	delete(r.Auctions, name)
}

func (r *Registry) FeeSchedule() *fees.Schedule {
	return r.Fees
}

func (r *Registry) AuctionSettingsHistory() *auction.SettingsHistory {
	return r.AuctionSettings
}

// DemandFactor returns the ray-scaled multiplier applied to every price.
func (r *Registry) DemandFactor() *big.Int {
	return r.DemandFactoring.FactorRay()
}

// RecordPurchase tallies a settled purchase in the current demand period.
func (r *Registry) RecordPurchase(price *big.Int) error {
	return r.DemandFactoring.RecordPurchase(price)
}

// RecordNames returns the registered names in ascending order.
func (r *Registry) RecordNames() []string {
	return sortedKeys(r.Records)
}

// AuctionNames returns the names under auction in ascending order.
func (r *Registry) AuctionNames() []string {
	return sortedKeys(r.Auctions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
