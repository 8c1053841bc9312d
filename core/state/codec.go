package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"arns/core/types"
	"arns/crypto"
	"arns/native/auction"
	"arns/native/common"
	"arns/native/demand"
	"arns/native/fees"
	"arns/storage/trie"
)

// snapshotVersion is bumped whenever the encoded layout changes.
const snapshotVersion uint64 = 1

type recordEntry struct {
	Name           string
	ContractTxID   string
	Type           string
	StartTimestamp uint64
	EndTimestamp   uint64
	Undernames     uint64
	PurchasePrice  *big.Int
}

type reservedEntry struct {
	Name         string
	Target       string
	EndTimestamp uint64
}

// settingsEntry stores rationals as exact "a/b" strings.
type settingsEntry struct {
	ID                   string
	DecayInterval        uint64
	DecayRate            string
	AuctionDuration      uint64
	FloorPriceMultiplier string
	StartPriceMultiplier string
}

type auctionEntry struct {
	Name         string
	Initiator    string
	Type         string
	ContractTxID string
	Years        uint64
	StartHeight  uint64
	StartPrice   *big.Int
	FloorPrice   *big.Int
	Settings     settingsEntry
}

type balanceEntry struct {
	Address string
	Amount  *big.Int
}

type demandEntry struct {
	PeriodZeroBlockHeight                 uint64
	CurrentPeriod                         uint64
	TrailingPeriodPurchases               []uint64
	TrailingPeriodRevenues                []*big.Int
	PurchasesThisPeriod                   uint64
	RevenueThisPeriod                     *big.Int
	DemandFactor                          *big.Int
	ConsecutivePeriodsWithMinDemandFactor uint64
}

type snapshot struct {
	Version         uint64
	Records         []recordEntry
	Reserved        []reservedEntry
	Auctions        []auctionEntry
	Balances        []balanceEntry
	Demand          demandEntry
	FeeTiers        []*big.Int
	SettingsCurrent string
	SettingsHistory []settingsEntry
}

// Encode serialises the registry into a deterministic RLP snapshot. Every map
// is flattened in ascending key order.
func Encode(r *Registry) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("state: nil registry")
	}
	snap := snapshot{Version: snapshotVersion}
	for _, name := range r.RecordNames() {
		snap.Records = append(snap.Records, encodeRecord(name, r.Records[name]))
	}
	for _, name := range sortedKeys(r.Reserved) {
		reservation := r.Reserved[name]
		snap.Reserved = append(snap.Reserved, reservedEntry{
			Name:         name,
			Target:       reservation.Target,
			EndTimestamp: reservation.EndTimestamp,
		})
	}
	for _, name := range r.AuctionNames() {
		a := r.Auctions[name]
		snap.Auctions = append(snap.Auctions, auctionEntry{
			Name:         name,
			Initiator:    a.Initiator.String(),
			Type:         string(a.Type),
			ContractTxID: a.ContractTxID,
			Years:        a.Years,
			StartHeight:  a.StartHeight,
			StartPrice:   common.CloneInt(a.StartPrice),
			FloorPrice:   common.CloneInt(a.FloorPrice),
			Settings:     encodeSettings(a.Settings),
		})
	}
	for _, addr := range sortedKeys(r.Balances) {
		snap.Balances = append(snap.Balances, balanceEntry{Address: addr, Amount: r.Balances[addr].ToBig()})
	}
	if d := r.DemandFactoring; d != nil {
		snap.Demand = demandEntry{
			PeriodZeroBlockHeight:                 d.PeriodZeroBlockHeight,
			CurrentPeriod:                         d.CurrentPeriod,
			TrailingPeriodPurchases:               append([]uint64(nil), d.TrailingPeriodPurchases[:]...),
			TrailingPeriodRevenues:                make([]*big.Int, demand.TrailingPeriodCount),
			PurchasesThisPeriod:                   d.PurchasesThisPeriod,
			RevenueThisPeriod:                     common.CloneInt(d.RevenueThisPeriod),
			DemandFactor:                          d.FactorRay(),
			ConsecutivePeriodsWithMinDemandFactor: d.ConsecutivePeriodsWithMinDemandFactor,
		}
		for i, revenue := range d.TrailingPeriodRevenues {
			snap.Demand.TrailingPeriodRevenues[i] = common.CloneInt(revenue)
		}
	}
	if r.Fees != nil {
		snap.FeeTiers = r.Fees.Tiers()
	}
	if h := r.AuctionSettings; h != nil {
		snap.SettingsCurrent = h.Current
		for _, s := range h.History {
			snap.SettingsHistory = append(snap.SettingsHistory, encodeSettings(s))
		}
	}
	return rlp.EncodeToBytes(&snap)
}

// Decode rebuilds a registry from an Encode snapshot.
func Decode(data []byte) (*Registry, error) {
	var snap snapshot
	if err := rlp.DecodeBytes(data, &snap); err != nil {
		return nil, fmt.Errorf("state: decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("state: unsupported snapshot version %d", snap.Version)
	}
	r := &Registry{
		Records:  make(map[string]*types.Record, len(snap.Records)),
		Reserved: make(map[string]*types.ReservedName, len(snap.Reserved)),
		Auctions: make(map[string]*auction.Auction, len(snap.Auctions)),
		Balances: make(map[string]*uint256.Int, len(snap.Balances)),
	}
	for _, entry := range snap.Records {
		recordType, err := types.ParseRecordType(entry.Type)
		if err != nil {
			return nil, fmt.Errorf("state: record %q: %w", entry.Name, err)
		}
		r.Records[entry.Name] = &types.Record{
			ContractTxID:   entry.ContractTxID,
			Type:           recordType,
			StartTimestamp: entry.StartTimestamp,
			EndTimestamp:   entry.EndTimestamp,
			Undernames:     entry.Undernames,
			PurchasePrice:  common.CloneInt(entry.PurchasePrice),
		}
	}
	for _, entry := range snap.Reserved {
		r.Reserved[entry.Name] = &types.ReservedName{Target: entry.Target, EndTimestamp: entry.EndTimestamp}
	}
	for _, entry := range snap.Auctions {
		initiator, err := crypto.DecodeAddress(entry.Initiator)
		if err != nil {
			return nil, fmt.Errorf("state: auction %q initiator: %w", entry.Name, err)
		}
		recordType, err := types.ParseRecordType(entry.Type)
		if err != nil {
			return nil, fmt.Errorf("state: auction %q: %w", entry.Name, err)
		}
		settings, err := decodeSettings(entry.Settings)
		if err != nil {
			return nil, fmt.Errorf("state: auction %q: %w", entry.Name, err)
		}
		r.Auctions[entry.Name] = &auction.Auction{
			Name:         entry.Name,
			Initiator:    initiator,
			Type:         recordType,
			ContractTxID: entry.ContractTxID,
			Years:        entry.Years,
			StartHeight:  entry.StartHeight,
			StartPrice:   common.CloneInt(entry.StartPrice),
			FloorPrice:   common.CloneInt(entry.FloorPrice),
			Settings:     settings,
		}
	}
	for _, entry := range snap.Balances {
		if err := r.setBalanceKey(entry.Address, common.CloneInt(entry.Amount)); err != nil {
			return nil, fmt.Errorf("state: balance %s: %w", entry.Address, err)
		}
	}

	d := &demand.State{
		PeriodZeroBlockHeight:                 snap.Demand.PeriodZeroBlockHeight,
		CurrentPeriod:                         snap.Demand.CurrentPeriod,
		PurchasesThisPeriod:                   snap.Demand.PurchasesThisPeriod,
		RevenueThisPeriod:                     common.CloneInt(snap.Demand.RevenueThisPeriod),
		DemandFactor:                          common.CloneInt(snap.Demand.DemandFactor),
		ConsecutivePeriodsWithMinDemandFactor: snap.Demand.ConsecutivePeriodsWithMinDemandFactor,
	}
	if len(snap.Demand.TrailingPeriodPurchases) != demand.TrailingPeriodCount ||
		len(snap.Demand.TrailingPeriodRevenues) != demand.TrailingPeriodCount {
		return nil, fmt.Errorf("state: trailing window must hold %d periods", demand.TrailingPeriodCount)
	}
	copy(d.TrailingPeriodPurchases[:], snap.Demand.TrailingPeriodPurchases)
	for i, revenue := range snap.Demand.TrailingPeriodRevenues {
		d.TrailingPeriodRevenues[i] = common.CloneInt(revenue)
	}
	r.DemandFactoring = d

	schedule, err := fees.NewSchedule(snap.FeeTiers)
	if err != nil {
		return nil, fmt.Errorf("state: fee schedule: %w", err)
	}
	r.Fees = schedule

	history := &auction.SettingsHistory{Current: snap.SettingsCurrent}
	for _, entry := range snap.SettingsHistory {
		settings, err := decodeSettings(entry)
		if err != nil {
			return nil, fmt.Errorf("state: auction settings: %w", err)
		}
		history.History = append(history.History, settings)
	}
	if _, err := history.Active(); err != nil {
		return nil, err
	}
	r.AuctionSettings = history
	return r, nil
}

// Digest is the blake3 hash of the canonical encoding. Two nodes that replayed
// the same commands from the same genesis report the same digest.
func Digest(r *Registry) ([32]byte, error) {
	encoded, err := Encode(r)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(encoded), nil
}

// RecordsRoot is the Merkle Patricia root over the registered names, so a
// single record can be proven against a published root.
func RecordsRoot(r *Registry) ([32]byte, error) {
	entries := make([]trie.Entry, 0, len(r.Records))
	for _, name := range r.RecordNames() {
		encoded, err := rlp.EncodeToBytes(encodeRecord(name, r.Records[name]))
		if err != nil {
			return [32]byte{}, err
		}
		entries = append(entries, trie.Entry{Key: []byte(name), Value: encoded})
	}
	root, err := trie.Root(entries)
	if err != nil {
		return [32]byte{}, err
	}
	return root, nil
}

func encodeRecord(name string, record *types.Record) recordEntry {
	return recordEntry{
		Name:           name,
		ContractTxID:   record.ContractTxID,
		Type:           string(record.Type),
		StartTimestamp: record.StartTimestamp,
		EndTimestamp:   record.EndTimestamp,
		Undernames:     record.Undernames,
		PurchasePrice:  common.CloneInt(record.PurchasePrice),
	}
}

func encodeSettings(s auction.Settings) settingsEntry {
	return settingsEntry{
		ID:                   s.ID,
		DecayInterval:        s.DecayInterval,
		DecayRate:            common.CloneRat(s.DecayRate).RatString(),
		AuctionDuration:      s.AuctionDuration,
		FloorPriceMultiplier: common.CloneRat(s.FloorPriceMultiplier).RatString(),
		StartPriceMultiplier: common.CloneRat(s.StartPriceMultiplier).RatString(),
	}
}

func decodeSettings(entry settingsEntry) (auction.Settings, error) {
	decayRate, err := common.ParseRat(entry.DecayRate)
	if err != nil {
		return auction.Settings{}, err
	}
	floor, err := common.ParseRat(entry.FloorPriceMultiplier)
	if err != nil {
		return auction.Settings{}, err
	}
	start, err := common.ParseRat(entry.StartPriceMultiplier)
	if err != nil {
		return auction.Settings{}, err
	}
	return auction.Settings{
		ID:                   entry.ID,
		DecayInterval:        entry.DecayInterval,
		DecayRate:            decayRate,
		AuctionDuration:      entry.AuctionDuration,
		FloorPriceMultiplier: floor,
		StartPriceMultiplier: start,
	}, nil
}
