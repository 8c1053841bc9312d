package names

import (
	"math/big"
	"unicode/utf8"

	coreerrors "arns/core/errors"
	"arns/core/events"
	"arns/core/types"
	"arns/native/auction"
	"arns/native/fees"
)

const (
	opBuyRecord              = "names.buyRecord"
	opExtendRecord           = "names.extendRecord"
	opIncreaseUndernameCount = "names.increaseUndernameCount"
	opSubmitAuctionBid       = "names.submitAuctionBid"
)

func requireName(op, raw string) (string, error) {
	name := NormalizeName(raw)
	if name == "" {
		return "", coreerrors.New(coreerrors.KindInvalidInput, op, "name required")
	}
	return name, nil
}

// ensureAvailable applies the rules shared by direct purchases and new
// auctions. Released leases and consumed or lapsed reservations are removed
// from the working copy.
func (e *Engine) ensureAvailable(x *execution, op, name string) error {
	now := x.block.Timestamp
	if record, ok := x.reg.GetRecord(name); ok {
		if !record.Released(now, e.cfg.GracePeriod) {
			return coreerrors.Newf(coreerrors.KindConflict, op, "name %q is already registered", name)
		}
		x.reg.DeleteRecord(name)
	}
	if reservation, ok := x.reg.GetReserved(name); ok {
		reservedForCaller := reservation.Target != "" && reservation.Target == x.caller.String()
		if !reservedForCaller && !reservation.Lapsed(now) {
			return coreerrors.Newf(coreerrors.KindConflict, op, "name %q is reserved", name)
		}
		x.reg.DeleteReserved(name)
		return nil
	}
	if utf8.RuneCountInString(name) < e.cfg.MinimumNameLength && now < e.cfg.ShortNameUnlockTimestamp {
		return coreerrors.Newf(coreerrors.KindConflict, op,
			"names shorter than %d characters are locked until %d", e.cfg.MinimumNameLength, e.cfg.ShortNameUnlockTimestamp)
	}
	return nil
}

func (e *Engine) leaseYears(op string, recordType types.RecordType, years uint64) (uint64, error) {
	if recordType == types.RecordTypePermabuy {
		return 0, nil
	}
	if years == 0 {
		years = 1
	}
	if years > e.cfg.MaxLeaseYears {
		return 0, coreerrors.Newf(coreerrors.KindInvalidInput, op, "lease years must be between 1 and %d", e.cfg.MaxLeaseYears)
	}
	return years, nil
}

func parseType(op string, recordType types.RecordType) (types.RecordType, error) {
	parsed, err := types.ParseRecordType(string(recordType))
	if err != nil {
		return "", coreerrors.New(coreerrors.KindInvalidInput, op, err.Error())
	}
	return parsed, nil
}

func (e *Engine) buyRecord(x *execution, cmd BuyRecord) (*Result, error) {
	name, err := requireName(opBuyRecord, cmd.Name)
	if err != nil {
		return nil, err
	}
	recordType, err := parseType(opBuyRecord, cmd.Type)
	if err != nil {
		return nil, err
	}
	years, err := e.leaseYears(opBuyRecord, recordType, cmd.Years)
	if err != nil {
		return nil, err
	}
	if _, ok := x.reg.GetAuction(name); ok {
		return nil, coreerrors.Newf(coreerrors.KindConflict, opBuyRecord, "name %q is currently in auction", name)
	}
	if err := e.ensureAvailable(x, opBuyRecord, name); err != nil {
		return nil, err
	}
	cost, err := e.calculator(x.reg).RegistrationCost(name, recordType, years)
	if err != nil {
		return nil, err
	}
	price := fees.Price(cost, x.reg.DemandFactor())
	if err := e.charge(x, opBuyRecord, price); err != nil {
		return nil, err
	}
	record := &types.Record{
		ContractTxID:   cmd.ContractTxID,
		Type:           recordType,
		StartTimestamp: x.block.Timestamp,
		Undernames:     e.cfg.DefaultUndernames,
		PurchasePrice:  new(big.Int).Set(price),
	}
	if recordType == types.RecordTypeLease {
		record.EndTimestamp = x.block.Timestamp + years*e.cfg.Fees.SecondsPerYear
	}
	x.reg.PutRecord(name, record)
	if err := x.reg.RecordPurchase(price); err != nil {
		return nil, err
	}
	x.emit(events.RecordPurchased{
		Name:         name,
		Buyer:        x.caller.String(),
		Type:         recordType,
		ContractTxID: cmd.ContractTxID,
		EndTimestamp: record.EndTimestamp,
		Price:        price,
	})
	return &Result{Kind: KindBuyRecord, Name: name, Price: price, Record: record.Clone()}, nil
}

// checkExtension returns the lease being extended and its new end. Years
// is bounded before any timestamp arithmetic so the end cannot wrap.
func (e *Engine) checkExtension(x *execution, op, name string, years uint64) (*types.Record, uint64, error) {
	if years == 0 {
		return nil, 0, coreerrors.New(coreerrors.KindInvalidInput, op, "years must be positive")
	}
	if years > e.cfg.MaxLeaseYears {
		return nil, 0, coreerrors.Newf(coreerrors.KindInvalidInput, op, "years must be between 1 and %d", e.cfg.MaxLeaseYears)
	}
	record, ok := x.reg.GetRecord(name)
	if !ok {
		return nil, 0, coreerrors.Newf(coreerrors.KindNotFound, op, "name %q is not registered", name)
	}
	if !record.IsLease() {
		return nil, 0, coreerrors.Newf(coreerrors.KindInvalidInput, op, "name %q is permanently owned", name)
	}
	now := x.block.Timestamp
	if record.Released(now, e.cfg.GracePeriod) {
		return nil, 0, coreerrors.Newf(coreerrors.KindNotFound, op, "lease for %q has expired past its grace period", name)
	}
	spy := e.cfg.Fees.SecondsPerYear
	newEnd := record.EndTimestamp + years*spy
	if newEnd > now+e.cfg.MaxLeaseYears*spy {
		return nil, 0, coreerrors.Newf(coreerrors.KindInvalidInput, op,
			"extension would exceed the %d year maximum lease", e.cfg.MaxLeaseYears)
	}
	return record, newEnd, nil
}

// extendRecord renews a lease. Anyone may pay for the extension.
func (e *Engine) extendRecord(x *execution, cmd ExtendRecord) (*Result, error) {
	name, err := requireName(opExtendRecord, cmd.Name)
	if err != nil {
		return nil, err
	}
	record, newEnd, err := e.checkExtension(x, opExtendRecord, name, cmd.Years)
	if err != nil {
		return nil, err
	}
	cost, err := e.calculator(x.reg).ExtensionCost(name, cmd.Years)
	if err != nil {
		return nil, err
	}
	price := fees.Price(cost, x.reg.DemandFactor())
	if err := e.charge(x, opExtendRecord, price); err != nil {
		return nil, err
	}
	record.EndTimestamp = newEnd
	if err := x.reg.RecordPurchase(price); err != nil {
		return nil, err
	}
	x.emit(events.RecordExtended{
		Name:         name,
		Payer:        x.caller.String(),
		Years:        cmd.Years,
		EndTimestamp: newEnd,
		Price:        price,
	})
	return &Result{Kind: KindExtendRecord, Name: name, Price: price, Record: record.Clone()}, nil
}

func (e *Engine) increaseUndernameCount(x *execution, cmd IncreaseUndernameCount) (*Result, error) {
	name, err := requireName(opIncreaseUndernameCount, cmd.Name)
	if err != nil {
		return nil, err
	}
	if cmd.Qty == 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, opIncreaseUndernameCount, "quantity must be positive")
	}
	record, ok := x.reg.GetRecord(name)
	if !ok {
		return nil, coreerrors.Newf(coreerrors.KindNotFound, opIncreaseUndernameCount, "name %q is not registered", name)
	}
	now := x.block.Timestamp
	if record.Expired(now) {
		return nil, coreerrors.Newf(coreerrors.KindInvalidInput, opIncreaseUndernameCount, "lease for %q has expired", name)
	}
	total := record.Undernames + cmd.Qty
	if total < record.Undernames || total > e.cfg.MaxUndernames {
		return nil, coreerrors.Newf(coreerrors.KindInvalidInput, opIncreaseUndernameCount,
			"undername count would exceed the maximum of %d", e.cfg.MaxUndernames)
	}
	cost, err := e.calculator(x.reg).UndernameCost(name, cmd.Qty, record, now)
	if err != nil {
		return nil, err
	}
	price := fees.Price(cost, x.reg.DemandFactor())
	if err := e.charge(x, opIncreaseUndernameCount, price); err != nil {
		return nil, err
	}
	record.Undernames = total
	if err := x.reg.RecordPurchase(price); err != nil {
		return nil, err
	}
	x.emit(events.UndernamesIncreased{
		Name:       name,
		Payer:      x.caller.String(),
		Added:      cmd.Qty,
		Undernames: total,
		Price:      price,
	})
	return &Result{Kind: KindIncreaseUndernameCount, Name: name, Price: price, Record: record.Clone()}, nil
}

func (e *Engine) auctionEngine(x *execution) *auction.Engine {
	engine := auction.NewEngine(e.cfg.Treasury, e.cfg.Fees)
	engine.SetDefaultUndernames(e.cfg.DefaultUndernames)
	engine.SetState(x.reg)
	return engine
}

func (e *Engine) submitAuctionBid(x *execution, cmd SubmitAuctionBid) (*Result, error) {
	name, err := requireName(opSubmitAuctionBid, cmd.Name)
	if err != nil {
		return nil, err
	}
	recordType, err := parseType(opSubmitAuctionBid, cmd.Type)
	if err != nil {
		return nil, err
	}
	years, err := e.leaseYears(opSubmitAuctionBid, recordType, cmd.Years)
	if err != nil {
		return nil, err
	}
	if _, open := x.reg.GetAuction(name); !open {
		if err := e.ensureAvailable(x, opSubmitAuctionBid, name); err != nil {
			return nil, err
		}
	}
	outcome, err := e.auctionEngine(x).SubmitBid(x.caller, x.block, auction.Bid{
		Name:         name,
		Type:         recordType,
		ContractTxID: cmd.ContractTxID,
		Years:        years,
		Amount:       cmd.Bid,
	})
	if err != nil {
		return nil, err
	}
	e.observer.ObserveAuction(outcome.Kind)
	switch outcome.Kind {
	case auction.OutcomeCreated:
		x.emit(events.AuctionCreated{
			Name:        name,
			Initiator:   x.caller.String(),
			Type:        outcome.Auction.Type,
			StartHeight: outcome.Auction.StartHeight,
			StartPrice:  outcome.Auction.StartPrice,
			FloorPrice:  outcome.Auction.FloorPrice,
			SettingsID:  outcome.Auction.Settings.ID,
		})
	default:
		winner := x.caller.String()
		if outcome.Kind == auction.OutcomeFinalized {
			winner = outcome.Auction.Initiator.String()
		}
		x.emit(events.AuctionSettled{
			Name:         name,
			Outcome:      string(outcome.Kind),
			Winner:       winner,
			ContractTxID: outcome.Record.ContractTxID,
			Price:        outcome.Price,
			Refunded:     outcome.Refunded,
		})
	}
	return &Result{
		Kind:    KindSubmitAuctionBid,
		Name:    name,
		Price:   outcome.Price,
		Record:  outcome.Record,
		Auction: outcome,
	}, nil
}
