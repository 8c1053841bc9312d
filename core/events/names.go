package events

import (
	"math/big"
	"strconv"

	"arns/core/types"
)

const (
	TypeRecordPurchased    = "names.purchased"
	TypeRecordExtended     = "names.extended"
	TypeUndernamesIncrease = "names.undernames_increased"
	TypeAuctionCreated     = "auction.created"
	TypeAuctionSettled     = "auction.settled"
	TypeDemandAdjusted     = "demand.adjusted"
)

// RecordPurchased is emitted when a name is bought outright.
type RecordPurchased struct {
	Name         string
	Buyer        string
	Type         types.RecordType
	ContractTxID string
	EndTimestamp uint64
	Price        *big.Int
}

func (RecordPurchased) EventType() string { return TypeRecordPurchased }

func (e RecordPurchased) Event() *types.Event {
	attrs := map[string]string{
		"name":         e.Name,
		"buyer":        e.Buyer,
		"type":         string(e.Type),
		"contractTxId": e.ContractTxID,
		"price":        formatAmount(e.Price),
	}
	if e.EndTimestamp > 0 {
		attrs["endTimestamp"] = uintToString(e.EndTimestamp)
	}
	return &types.Event{Type: TypeRecordPurchased, Attributes: attrs}
}

// RecordExtended is emitted when a lease is renewed.
type RecordExtended struct {
	Name         string
	Payer        string
	Years        uint64
	EndTimestamp uint64
	Price        *big.Int
}

func (RecordExtended) EventType() string { return TypeRecordExtended }

func (e RecordExtended) Event() *types.Event {
	return &types.Event{
		Type: TypeRecordExtended,
		Attributes: map[string]string{
			"name":         e.Name,
			"payer":        e.Payer,
			"years":        uintToString(e.Years),
			"endTimestamp": uintToString(e.EndTimestamp),
			"price":        formatAmount(e.Price),
		},
	}
}

// UndernamesIncreased is emitted when a record's undername allowance grows.
type UndernamesIncreased struct {
	Name       string
	Payer      string
	Added      uint64
	Undernames uint64
	Price      *big.Int
}

func (UndernamesIncreased) EventType() string { return TypeUndernamesIncrease }

func (e UndernamesIncreased) Event() *types.Event {
	return &types.Event{
		Type: TypeUndernamesIncrease,
		Attributes: map[string]string{
			"name":       e.Name,
			"payer":      e.Payer,
			"added":      uintToString(e.Added),
			"undernames": uintToString(e.Undernames),
			"price":      formatAmount(e.Price),
		},
	}
}

// AuctionCreated is emitted when a bid opens a new auction.
type AuctionCreated struct {
	Name        string
	Initiator   string
	Type        types.RecordType
	StartHeight uint64
	StartPrice  *big.Int
	FloorPrice  *big.Int
	SettingsID  string
}

func (AuctionCreated) EventType() string { return TypeAuctionCreated }

func (e AuctionCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeAuctionCreated,
		Attributes: map[string]string{
			"name":        e.Name,
			"initiator":   e.Initiator,
			"type":        string(e.Type),
			"startHeight": uintToString(e.StartHeight),
			"startPrice":  formatAmount(e.StartPrice),
			"floorPrice":  formatAmount(e.FloorPrice),
			"settingsId":  e.SettingsID,
		},
	}
}

// AuctionSettled is emitted when an auction is won or finalised.
type AuctionSettled struct {
	Name         string
	Outcome      string
	Winner       string
	ContractTxID string
	Price        *big.Int
	Refunded     *big.Int
}

func (AuctionSettled) EventType() string { return TypeAuctionSettled }

func (e AuctionSettled) Event() *types.Event {
	attrs := map[string]string{
		"name":         e.Name,
		"outcome":      e.Outcome,
		"winner":       e.Winner,
		"contractTxId": e.ContractTxID,
		"price":        formatAmount(e.Price),
	}
	if e.Refunded != nil && e.Refunded.Sign() > 0 {
		attrs["refunded"] = e.Refunded.String()
	}
	return &types.Event{Type: TypeAuctionSettled, Attributes: attrs}
}

// DemandAdjusted is emitted once per closed demand period.
type DemandAdjusted struct {
	Period    uint64
	Direction string
	Previous  string
	Next      string
	Purchases uint64
	Revenue   *big.Int
}

func (DemandAdjusted) EventType() string { return TypeDemandAdjusted }

func (e DemandAdjusted) Event() *types.Event {
	return &types.Event{
		Type: TypeDemandAdjusted,
		Attributes: map[string]string{
			"period":    uintToString(e.Period),
			"direction": e.Direction,
			"previous":  e.Previous,
			"next":      e.Next,
			"purchases": uintToString(e.Purchases),
			"revenue":   formatAmount(e.Revenue),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
