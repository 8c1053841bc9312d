package auction

import (
	"errors"
	"math/big"
	"strings"

	coreerrors "arns/core/errors"
	"arns/core/types"
	"arns/crypto"
	"arns/native/common"
	"arns/native/fees"
)

var (
	errNilState    = errors.New("auction engine: state not configured")
	errNilTreasury = errors.New("auction engine: treasury address not configured")
)

const opSubmitBid = "auction.submitBid"

// DefaultUndernames is the undername allowance granted to a freshly settled
// record.
const DefaultUndernames uint64 = 10

type engineState interface {
	GetAuction(name string) (*Auction, bool)
	PutAuction(a *Auction)
	DeleteAuction(name string)
	PutRecord(name string, record *types.Record)
	FeeSchedule() *fees.Schedule
	AuctionSettingsHistory() *SettingsHistory
	DemandFactor() *big.Int
	RecordPurchase(price *big.Int) error
	HasSufficientBalance(addr crypto.Address, amount *big.Int) bool
	Debit(addr crypto.Address, amount *big.Int) error
	Credit(addr crypto.Address, amount *big.Int) error
}

// OutcomeKind describes how a bid was resolved.
type OutcomeKind string

const (
	// OutcomeCreated means the bid opened a new auction and escrowed the floor.
	OutcomeCreated OutcomeKind = "created"
	// OutcomeWon means the caller won an active auction.
	OutcomeWon OutcomeKind = "won"
	// OutcomeFinalized means a stale auction was settled for its initiator and
	// the caller's bid was not considered.
	OutcomeFinalized OutcomeKind = "finalized"
)

// Bid is a request to open or win the auction for Name.
type Bid struct {
	Name         string
	Type         types.RecordType
	ContractTxID string
	// Years applies to leases only; zero means one year.
	Years uint64
	// Amount is optional. When nil the required minimum is paid.
	Amount *big.Int
}

// Outcome reports the effect of a bid. Price is the amount the auction settled
// at, or the escrowed floor for a newly created auction.
type Outcome struct {
	Kind    OutcomeKind
	Auction *Auction
	Record  *types.Record
	Price   *big.Int
	// Refunded is the floor price returned to a non-winning initiator.
	Refunded *big.Int
}

// Engine runs the auction state machine against the registry. Name
// availability (records, reservations, short-name lock) is checked by the
// caller before SubmitBid.
type Engine struct {
	state             engineState
	treasury          crypto.Address
	params            fees.Params
	defaultUndernames uint64
}

// NewEngine constructs an auction engine that settles proceeds to treasury.
func NewEngine(treasury crypto.Address, params fees.Params) *Engine {
	return &Engine{treasury: treasury, params: params.Clone(), defaultUndernames: DefaultUndernames}
}

// SetState wires the engine to the registry it mutates.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetDefaultUndernames overrides the undername allowance of settled records.
func (e *Engine) SetDefaultUndernames(count uint64) {
	if e == nil || count == 0 {
		return
	}
	e.defaultUndernames = count
}

// SubmitBid opens a new auction for bid.Name or resolves the existing one.
func (e *Engine) SubmitBid(caller crypto.Address, block types.BlockContext, bid Bid) (*Outcome, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.treasury.IsZero() {
		return nil, errNilTreasury
	}
	name := strings.TrimSpace(bid.Name)
	if name == "" {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, opSubmitBid, "name required")
	}
	if bid.Amount != nil && bid.Amount.Sign() <= 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, opSubmitBid, "bid must be positive")
	}
	if existing, ok := e.state.GetAuction(name); ok {
		return e.resolve(caller, block, existing, bid)
	}
	return e.create(caller, block, name, bid)
}

func (e *Engine) create(caller crypto.Address, block types.BlockContext, name string, bid Bid) (*Outcome, error) {
	settings, err := e.state.AuctionSettingsHistory().Active()
	if err != nil {
		return nil, err
	}
	recordType := bid.Type
	if recordType == "" {
		recordType = types.RecordTypeLease
	}
	years := uint64(0)
	if recordType == types.RecordTypeLease {
		years = bid.Years
		if years == 0 {
			years = 1
		}
	}
	calc := fees.NewCalculator(e.state.FeeSchedule(), e.params)
	cost, err := calc.RegistrationCost(name, recordType, years)
	if err != nil {
		return nil, err
	}
	factor := e.state.DemandFactor()
	floor := fees.Price(cost, factor, settings.FloorPriceMultiplier)
	start := fees.Price(cost, factor, settings.StartPriceMultiplier)
	if start.Cmp(floor) < 0 {
		start = new(big.Int).Set(floor)
	}
	if !e.state.HasSufficientBalance(caller, floor) {
		return nil, coreerrors.Newf(coreerrors.KindInsufficientFunds, opSubmitBid,
			"balance below auction floor price %s", floor)
	}
	if err := e.state.Debit(caller, floor); err != nil {
		return nil, err
	}
	a := &Auction{
		Name:         name,
		Initiator:    caller,
		Type:         recordType,
		ContractTxID: bid.ContractTxID,
		Years:        years,
		StartHeight:  block.Height,
		StartPrice:   start,
		FloorPrice:   floor,
		Settings:     settings,
	}
	e.state.PutAuction(a)
	return &Outcome{Kind: OutcomeCreated, Auction: a.Clone(), Price: new(big.Int).Set(floor)}, nil
}

func (e *Engine) resolve(caller crypto.Address, block types.BlockContext, a *Auction, bid Bid) (*Outcome, error) {
	required, err := MinimumBid(a, block.Height)
	if err != nil {
		return nil, err
	}
	if a.Expired(block.Height) || a.FloorPrice.Cmp(required) >= 0 {
		return e.finalize(block, a)
	}
	if bid.Amount != nil && bid.Amount.Cmp(required) < 0 {
		return nil, coreerrors.Newf(coreerrors.KindInvalidInput, opSubmitBid,
			"bid %s is below the required minimum %s", bid.Amount, required)
	}
	// Any accepted bid is at least the required minimum and settles at it.
	price := new(big.Int).Set(required)
	initiatorWins := caller.Equal(a.Initiator)
	due := new(big.Int).Set(price)
	if initiatorWins {
		due.Sub(due, a.FloorPrice)
	}
	if !e.state.HasSufficientBalance(caller, due) {
		return nil, coreerrors.Newf(coreerrors.KindInsufficientFunds, opSubmitBid,
			"balance below winning bid %s", due)
	}

	record := e.newRecord(a, bid.ContractTxID, block, price)
	if err := e.state.Debit(caller, due); err != nil {
		return nil, err
	}
	if err := e.state.Credit(e.treasury, due); err != nil {
		return nil, err
	}
	refunded := big.NewInt(0)
	if initiatorWins {
		if err := e.state.Credit(e.treasury, a.FloorPrice); err != nil {
			return nil, err
		}
	} else {
		if err := e.state.Credit(a.Initiator, a.FloorPrice); err != nil {
			return nil, err
		}
		refunded.Set(a.FloorPrice)
	}
	e.state.PutRecord(a.Name, record)
	e.state.DeleteAuction(a.Name)
	if err := e.state.RecordPurchase(price); err != nil {
		return nil, err
	}
	return &Outcome{
		Kind:     OutcomeWon,
		Auction:  a.Clone(),
		Record:   record.Clone(),
		Price:    price,
		Refunded: refunded,
	}, nil
}

// finalize settles a stale auction at its floor in favour of the initiator.
func (e *Engine) finalize(block types.BlockContext, a *Auction) (*Outcome, error) {
	price := new(big.Int).Set(a.FloorPrice)
	record := e.newRecord(a, a.ContractTxID, block, price)
	if err := e.state.Credit(e.treasury, price); err != nil {
		return nil, err
	}
	e.state.PutRecord(a.Name, record)
	e.state.DeleteAuction(a.Name)
	if err := e.state.RecordPurchase(price); err != nil {
		return nil, err
	}
	return &Outcome{
		Kind:     OutcomeFinalized,
		Auction:  a.Clone(),
		Record:   record.Clone(),
		Price:    price,
		Refunded: big.NewInt(0),
	}, nil
}

func (e *Engine) newRecord(a *Auction, contractTxID string, block types.BlockContext, price *big.Int) *types.Record {
	record := &types.Record{
		ContractTxID:   contractTxID,
		Type:           a.Type,
		StartTimestamp: block.Timestamp,
		Undernames:     e.defaultUndernames,
		PurchasePrice:  common.CloneInt(price),
	}
	if a.Type == types.RecordTypeLease {
		years := a.Years
		if years == 0 {
			years = 1
		}
		record.EndTimestamp = block.Timestamp + years*e.params.SecondsPerYear
	}
	return record
}
