package names

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "arns/core/errors"
	"arns/core/events"
	"arns/core/state"
	"arns/core/types"
	"arns/crypto"
	"arns/native/auction"
	"arns/native/common"
	"arns/native/fees"
)

const testNow uint64 = 1_700_000_000

var (
	treasury = crypto.DeriveAddress("treasury")
	alice    = crypto.DeriveAddress("alice")
	bob      = crypto.DeriveAddress("bob")
)

func at(height uint64) types.BlockContext {
	return types.BlockContext{Height: height, Timestamp: testNow + height*2}
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) (*Engine, *events.Recorder) {
	t.Helper()
	cfg := DefaultConfig(treasury)
	for _, fn := range mutate {
		fn(&cfg)
	}
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	recorder := &events.Recorder{}
	engine.SetEmitter(recorder)
	return engine, recorder
}

func newTestRegistry(t *testing.T) *state.Registry {
	t.Helper()
	reg, err := state.NewRegistry(state.Genesis{
		Balances: map[string]*big.Int{
			alice.String(): big.NewInt(1_000_000_000),
			bob.String():   big.NewInt(1_000_000_000),
		},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func digest(t *testing.T, reg *state.Registry) [32]byte {
	t.Helper()
	d, err := state.Digest(reg)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	return d
}

func expectKind(t *testing.T, err error, want *coreerrors.Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s error, got %v", want.Kind, err)
	}
}

func TestBuyPermabuyReferencePrice(t *testing.T) {
	engine, recorder := newTestEngine(t)
	reg := newTestRegistry(t)
	before := digest(t, reg)

	next, res, err := engine.BuyRecord(reg, alice, at(1), BuyRecord{
		Name:         "Fourteen-Chars ",
		Type:         types.RecordTypePermabuy,
		ContractTxID: "contract-a",
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res.Price.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("price = %s, want 500000", res.Price)
	}
	record, ok := next.GetRecord("fourteen-chars")
	if !ok {
		t.Fatalf("record not stored under normalised name")
	}
	if record.Type != types.RecordTypePermabuy || record.EndTimestamp != 0 || record.Undernames != DefaultUndernames {
		t.Fatalf("unexpected record %+v", record)
	}
	if got := next.Balance(alice); got.Cmp(big.NewInt(999_500_000)) != 0 {
		t.Fatalf("alice balance = %s", got)
	}
	if got := next.Balance(treasury); got.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("treasury balance = %s", got)
	}
	if next.DemandFactoring.PurchasesThisPeriod != 1 || next.DemandFactoring.RevenueThisPeriod.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("purchase not recorded exactly once")
	}
	if digest(t, reg) != before {
		t.Fatalf("input registry was mutated")
	}
	if got := recorder.Types(); len(got) != 1 || got[0] != events.TypeRecordPurchased {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestBuyLeaseSetsExpiry(t *testing.T) {
	engine, _ := newTestEngine(t)
	block := at(1)
	next, res, err := engine.BuyRecord(newTestRegistry(t), alice, block, BuyRecord{Name: "new-auction", Years: 2})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	// 450,000 base + 2 years at 20%.
	if res.Price.Cmp(big.NewInt(630_000)) != 0 {
		t.Fatalf("price = %s, want 630000", res.Price)
	}
	record, _ := next.GetRecord("new-auction")
	if record.Type != types.RecordTypeLease || record.EndTimestamp != block.Timestamp+2*fees.SecondsPerYear {
		t.Fatalf("unexpected lease %+v", record)
	}
	if _, _, err := engine.BuyRecord(next, alice, block, BuyRecord{Name: "other-name", Years: 6}); !errors.Is(err, coreerrors.ErrInvalidInput) {
		t.Fatalf("expected lease years above maximum to be rejected, got %v", err)
	}
}

func TestBuyRejectsTakenName(t *testing.T) {
	engine, recorder := newTestEngine(t)
	reg, _, err := engine.BuyRecord(newTestRegistry(t), alice, at(1), BuyRecord{Name: "taken-name"})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	before := digest(t, reg)
	returned, _, err := engine.BuyRecord(reg, bob, at(2), BuyRecord{Name: "taken-name"})
	expectKind(t, err, coreerrors.ErrConflict)
	if returned != reg || digest(t, reg) != before {
		t.Fatalf("failed command must return the untouched registry")
	}
	if len(recorder.Events()) != 1 {
		t.Fatalf("failed command must not emit events, got %v", recorder.Types())
	}
}

func TestBuyAfterGracePeriodReleasesName(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := newTestRegistry(t)
	block := at(10)
	reg.PutRecord("lapsed-name", &types.Record{
		ContractTxID:  "old",
		Type:          types.RecordTypeLease,
		EndTimestamp:  block.Timestamp - DefaultGracePeriod + 1,
		Undernames:    10,
		PurchasePrice: big.NewInt(1),
	})
	if _, _, err := engine.BuyRecord(reg, bob, block, BuyRecord{Name: "lapsed-name"}); !errors.Is(err, coreerrors.ErrConflict) {
		t.Fatalf("name inside its grace period must stay blocked, got %v", err)
	}
	reg.Records["lapsed-name"].EndTimestamp = block.Timestamp - DefaultGracePeriod
	next, _, err := engine.BuyRecord(reg, bob, block, BuyRecord{Name: "lapsed-name", ContractTxID: "new"})
	if err != nil {
		t.Fatalf("buy released name: %v", err)
	}
	if record, _ := next.GetRecord("lapsed-name"); record.ContractTxID != "new" {
		t.Fatalf("released name not reassigned: %+v", record)
	}
}

func TestReservedNames(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := newTestRegistry(t)
	block := at(5)
	reg.PutReserved("reserved-for-bob", &types.ReservedName{Target: bob.String()})
	reg.PutReserved("lapsed-reservation", &types.ReservedName{EndTimestamp: block.Timestamp})
	reg.PutReserved("held", &types.ReservedName{})

	_, _, err := engine.BuyRecord(reg, alice, block, BuyRecord{Name: "reserved-for-bob"})
	expectKind(t, err, coreerrors.ErrConflict)

	next, _, err := engine.BuyRecord(reg, bob, block, BuyRecord{Name: "reserved-for-bob"})
	if err != nil {
		t.Fatalf("target buy: %v", err)
	}
	if _, ok := next.GetReserved("reserved-for-bob"); ok {
		t.Fatalf("reservation should be consumed")
	}

	if _, _, err := engine.BuyRecord(reg, alice, block, BuyRecord{Name: "lapsed-reservation"}); err != nil {
		t.Fatalf("lapsed reservation should be open: %v", err)
	}
	_, _, err = engine.SubmitAuctionBid(reg, alice, block, SubmitAuctionBid{Name: "held"})
	expectKind(t, err, coreerrors.ErrConflict)
}

func TestShortNamesLockedUntilUnlock(t *testing.T) {
	unlock := testNow + 1_000
	engine, _ := newTestEngine(t, func(cfg *Config) { cfg.ShortNameUnlockTimestamp = unlock })
	reg := newTestRegistry(t)

	_, _, err := engine.BuyRecord(reg, alice, types.BlockContext{Height: 1, Timestamp: unlock - 1}, BuyRecord{Name: "abcd"})
	expectKind(t, err, coreerrors.ErrConflict)

	_, res, err := engine.BuyRecord(reg, alice, types.BlockContext{Height: 1, Timestamp: unlock}, BuyRecord{Name: "abcd"})
	if err != nil {
		t.Fatalf("buy after unlock: %v", err)
	}
	if res.Price.Cmp(big.NewInt(1_800_000)) != 0 {
		t.Fatalf("price = %s, want 1800000", res.Price)
	}
}

func TestBuyInsufficientFunds(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := newTestRegistry(t)
	poor := crypto.DeriveAddress("poor")
	if err := reg.SetBalance(poor, big.NewInt(10)); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	before := digest(t, reg)
	_, _, err := engine.BuyRecord(reg, poor, at(1), BuyRecord{Name: "expensive-name", Type: types.RecordTypePermabuy})
	expectKind(t, err, coreerrors.ErrInsufficientFunds)
	if digest(t, reg) != before {
		t.Fatalf("registry changed after failed purchase")
	}
}

func TestBuyRejectsNameInAuction(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg, _, err := engine.SubmitAuctionBid(newTestRegistry(t), alice, at(1), SubmitAuctionBid{Name: "new-auction"})
	if err != nil {
		t.Fatalf("open auction: %v", err)
	}
	_, _, err = engine.BuyRecord(reg, bob, at(2), BuyRecord{Name: "new-auction"})
	expectKind(t, err, coreerrors.ErrConflict)
}

func leaseRegistry(t *testing.T, block types.BlockContext) *state.Registry {
	t.Helper()
	reg := newTestRegistry(t)
	reg.PutRecord("existing-record", &types.Record{
		ContractTxID:   "contract",
		Type:           types.RecordTypeLease,
		StartTimestamp: block.Timestamp,
		EndTimestamp:   block.Timestamp + fees.SecondsPerYear,
		Undernames:     10,
		PurchasePrice:  big.NewInt(1_000),
	})
	reg.PutRecord("existing-permabuy", &types.Record{
		ContractTxID:  "contract",
		Type:          types.RecordTypePermabuy,
		Undernames:    10,
		PurchasePrice: big.NewInt(1_000),
	})
	return reg
}

func TestExtendRecord(t *testing.T) {
	engine, _ := newTestEngine(t)
	block := at(3)
	reg := leaseRegistry(t, block)

	next, res, err := engine.ExtendRecord(reg, bob, block, ExtendRecord{Name: "existing-record", Years: 1})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if res.Price.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("price = %s, want 50000", res.Price)
	}
	if record, _ := next.GetRecord("existing-record"); record.EndTimestamp != block.Timestamp+2*fees.SecondsPerYear {
		t.Fatalf("unexpected end %d", record.EndTimestamp)
	}
	if next.DemandFactoring.PurchasesThisPeriod != 1 {
		t.Fatalf("extension should record a purchase")
	}

	_, _, err = engine.ExtendRecord(reg, bob, block, ExtendRecord{Name: "existing-record", Years: 5})
	expectKind(t, err, coreerrors.ErrInvalidInput)
	_, _, err = engine.ExtendRecord(reg, bob, block, ExtendRecord{Name: "existing-permabuy", Years: 1})
	expectKind(t, err, coreerrors.ErrInvalidInput)
	_, _, err = engine.ExtendRecord(reg, bob, block, ExtendRecord{Name: "missing-record", Years: 1})
	expectKind(t, err, coreerrors.ErrNotFound)

	late := types.BlockContext{Height: block.Height, Timestamp: block.Timestamp + fees.SecondsPerYear + DefaultGracePeriod}
	_, _, err = engine.ExtendRecord(reg, bob, late, ExtendRecord{Name: "existing-record", Years: 1})
	expectKind(t, err, coreerrors.ErrNotFound)

	grace := types.BlockContext{Height: block.Height, Timestamp: block.Timestamp + fees.SecondsPerYear + 1}
	if _, _, err := engine.ExtendRecord(reg, bob, grace, ExtendRecord{Name: "existing-record", Years: 1}); err != nil {
		t.Fatalf("lease inside grace period should be renewable: %v", err)
	}
}

func TestExtendRecordRejectsWrappingYears(t *testing.T) {
	engine, _ := newTestEngine(t)
	block := at(3)
	reg := leaseRegistry(t, block)
	huge, _ := new(big.Int).SetString("100000000000000000000000", 10)
	if err := reg.SetBalance(bob, huge); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	record, _ := reg.GetRecord("existing-record")
	end := record.EndTimestamp

	// 2^57-1 years times the seconds in a year wraps a uint64.
	next, _, err := engine.ExtendRecord(reg, bob, block, ExtendRecord{Name: "existing-record", Years: 1<<57 - 1})
	expectKind(t, err, coreerrors.ErrInvalidInput)
	if next != reg {
		t.Fatalf("rejected extension should return the input registry")
	}
	if record, _ := reg.GetRecord("existing-record"); record.EndTimestamp != end {
		t.Fatalf("lease end moved from %d to %d", end, record.EndTimestamp)
	}
	if reg.Balance(bob).Cmp(huge) != 0 {
		t.Fatalf("payer charged for a rejected extension")
	}

	_, err = engine.Quote(reg, bob, block, ExtendRecord{Name: "existing-record", Years: 1<<57 - 1})
	expectKind(t, err, coreerrors.ErrInvalidInput)
}

func TestIncreaseUndernameCount(t *testing.T) {
	engine, _ := newTestEngine(t)
	block := at(3)
	reg := leaseRegistry(t, block)

	next, res, err := engine.IncreaseUndernameCount(reg, alice, block, IncreaseUndernameCount{Name: "existing-record", Qty: 5})
	if err != nil {
		t.Fatalf("increase lease undernames: %v", err)
	}
	if res.Price.Cmp(big.NewInt(1_250)) != 0 {
		t.Fatalf("lease price = %s, want 1250", res.Price)
	}
	if record, _ := next.GetRecord("existing-record"); record.Undernames != 15 {
		t.Fatalf("undernames = %d, want 15", record.Undernames)
	}

	_, res, err = engine.IncreaseUndernameCount(reg, alice, block, IncreaseUndernameCount{Name: "existing-permabuy", Qty: 5})
	if err != nil {
		t.Fatalf("increase permabuy undernames: %v", err)
	}
	if res.Price.Cmp(big.NewInt(62_500)) != 0 {
		t.Fatalf("permabuy price = %s, want 62500", res.Price)
	}

	_, _, err = engine.IncreaseUndernameCount(reg, alice, block, IncreaseUndernameCount{Name: "existing-record", Qty: 0})
	expectKind(t, err, coreerrors.ErrInvalidInput)
	_, _, err = engine.IncreaseUndernameCount(reg, alice, block, IncreaseUndernameCount{Name: "existing-record", Qty: DefaultMaxUndernames})
	expectKind(t, err, coreerrors.ErrInvalidInput)
	_, _, err = engine.IncreaseUndernameCount(reg, alice, block, IncreaseUndernameCount{Name: "missing-record", Qty: 1})
	expectKind(t, err, coreerrors.ErrNotFound)

	expired := types.BlockContext{Height: block.Height, Timestamp: block.Timestamp + fees.SecondsPerYear}
	_, _, err = engine.IncreaseUndernameCount(reg, alice, expired, IncreaseUndernameCount{Name: "existing-record", Qty: 1})
	expectKind(t, err, coreerrors.ErrInvalidInput)
}

func TestAuctionLifecycle(t *testing.T) {
	engine, recorder := newTestEngine(t)
	reg := newTestRegistry(t)

	reg, res, err := engine.SubmitAuctionBid(reg, alice, at(100), SubmitAuctionBid{Name: "new-auction", ContractTxID: "alice-contract"})
	if err != nil {
		t.Fatalf("open auction: %v", err)
	}
	if res.Auction.Kind != auction.OutcomeCreated || res.Price.Cmp(big.NewInt(540_000)) != 0 {
		t.Fatalf("unexpected open result %+v", res.Auction)
	}
	if reg.DemandFactoring.PurchasesThisPeriod != 0 {
		t.Fatalf("opening an auction must not record a purchase")
	}

	required, err := engine.Quote(reg, bob, at(130), SubmitAuctionBid{Name: "new-auction"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if required.Cmp(big.NewInt(105_840_000)) != 0 {
		t.Fatalf("required bid = %s, want 105840000", required)
	}

	reg, res, err = engine.SubmitAuctionBid(reg, bob, at(130), SubmitAuctionBid{Name: "new-auction", ContractTxID: "bob-contract", Bid: required})
	if err != nil {
		t.Fatalf("winning bid: %v", err)
	}
	if res.Auction.Kind != auction.OutcomeWon {
		t.Fatalf("expected win, got %s", res.Auction.Kind)
	}
	if record, _ := reg.GetRecord("new-auction"); record.ContractTxID != "bob-contract" {
		t.Fatalf("record not assigned to winner")
	}
	if got := reg.Balance(alice); got.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("initiator not refunded, balance %s", got)
	}
	if reg.DemandFactoring.PurchasesThisPeriod != 1 || reg.DemandFactoring.RevenueThisPeriod.Cmp(required) != 0 {
		t.Fatalf("auction win should record one purchase at the bid")
	}
	want := []string{events.TypeAuctionCreated, events.TypeAuctionSettled}
	got := recorder.Types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestInitiatorSoleBidderKeepsOnlyFloorDebit(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := newTestRegistry(t)
	reg, _, err := engine.SubmitAuctionBid(reg, alice, at(100), SubmitAuctionBid{Name: "new-auction"})
	if err != nil {
		t.Fatalf("open auction: %v", err)
	}
	end := at(100 + auction.DefaultAuctionDuration)
	reg, res, err := engine.SubmitAuctionBid(reg, alice, end, SubmitAuctionBid{Name: "new-auction"})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.Auction.Kind != auction.OutcomeFinalized {
		t.Fatalf("expected finalized, got %s", res.Auction.Kind)
	}
	if got := reg.Balance(alice); got.Cmp(big.NewInt(1_000_000_000-540_000)) != 0 {
		t.Fatalf("initiator balance = %s", got)
	}
	if got := reg.Balance(treasury); got.Cmp(big.NewInt(540_000)) != 0 {
		t.Fatalf("treasury = %s", got)
	}
}

func TestQuoteReferenceVectors(t *testing.T) {
	engine, _ := newTestEngine(t)
	block := at(0)
	reg := leaseRegistry(t, block)
	reg.PutAuction(&auction.Auction{
		Name:        "existing-auction",
		Initiator:   alice,
		Type:        types.RecordTypeLease,
		Years:       1,
		StartHeight: 0,
		StartPrice:  big.NewInt(1_000),
		FloorPrice:  big.NewInt(1),
		Settings: auction.Settings{
			ID:                   "reference",
			DecayInterval:        1,
			DecayRate:            common.MustRat("0.01"),
			AuctionDuration:      10,
			FloorPriceMultiplier: common.MustRat("1"),
			StartPriceMultiplier: common.MustRat("10"),
		},
	})
	before := digest(t, reg)

	tests := []struct {
		name  string
		block types.BlockContext
		cmd   Command
		want  int64
	}{
		{"buy permabuy", block, BuyRecord{Name: "test-buy-record", Type: types.RecordTypePermabuy}, 500_000},
		{"extend", block, ExtendRecord{Name: "existing-record", Years: 1}, 50_000},
		{"lease undernames", block, IncreaseUndernameCount{Name: "existing-record", Qty: 5}, 1_250},
		{"permabuy undernames", block, IncreaseUndernameCount{Name: "existing-permabuy", Qty: 5}, 62_500},
		{"existing auction", at(1), SubmitAuctionBid{Name: "existing-auction"}, 990},
		{"new auction floor", block, SubmitAuctionBid{Name: "new-auction"}, 540_000},
	}
	for _, tc := range tests {
		price, err := engine.Quote(reg, bob, tc.block, tc.cmd)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if price.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("%s: price = %s, want %d", tc.name, price, tc.want)
		}
	}
	if digest(t, reg) != before {
		t.Fatalf("quote mutated the registry")
	}
}

func TestQuoteExtendRejectsWhatExtendRejects(t *testing.T) {
	engine, _ := newTestEngine(t)
	block := at(0)
	reg := leaseRegistry(t, block)
	late := types.BlockContext{Height: block.Height, Timestamp: block.Timestamp + fees.SecondsPerYear + DefaultGracePeriod}

	tests := []struct {
		name  string
		block types.BlockContext
		cmd   ExtendRecord
		want  *coreerrors.Error
	}{
		{"missing", block, ExtendRecord{Name: "missing-record", Years: 1}, coreerrors.ErrNotFound},
		{"permabuy", block, ExtendRecord{Name: "existing-permabuy", Years: 1}, coreerrors.ErrInvalidInput},
		{"zero years", block, ExtendRecord{Name: "existing-record"}, coreerrors.ErrInvalidInput},
		{"too many years", block, ExtendRecord{Name: "existing-record", Years: DefaultMaxLeaseYears + 1}, coreerrors.ErrInvalidInput},
		{"past maximum lease", block, ExtendRecord{Name: "existing-record", Years: DefaultMaxLeaseYears}, coreerrors.ErrInvalidInput},
		{"past grace period", late, ExtendRecord{Name: "existing-record", Years: 1}, coreerrors.ErrNotFound},
	}
	for _, tc := range tests {
		_, err := engine.Quote(reg, bob, tc.block, tc.cmd)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %s error, got %v", tc.name, tc.want.Kind, err)
		}
		_, _, err = engine.ExtendRecord(reg, bob, tc.block, tc.cmd)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: extend expected %s error, got %v", tc.name, tc.want.Kind, err)
		}
	}
}

func TestProcessTicksBeforeApplying(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := newTestRegistry(t)

	reg, _, err := engine.Process(reg, alice, at(0), BuyRecord{Name: "test-buy-record", Type: types.RecordTypePermabuy})
	if err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	// Mid-period purchases never move the factor.
	reg, res, err := engine.Process(reg, alice, at(719), BuyRecord{Name: "second-purchase", Type: types.RecordTypePermabuy})
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}
	if res.Price.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("mid-period price = %s", res.Price)
	}

	reg, res, err = engine.Process(reg, bob, at(720), BuyRecord{Name: "third-purchase", Type: types.RecordTypePermabuy})
	if err != nil {
		t.Fatalf("third purchase: %v", err)
	}
	if res.Price.Cmp(big.NewInt(525_000)) != 0 {
		t.Fatalf("price after demand increase = %s, want 525000", res.Price)
	}
	if len(res.Events) != 2 || res.Events[0].Type != events.TypeDemandAdjusted {
		t.Fatalf("expected demand adjustment before purchase, got %+v", res.Events)
	}
	if reg.DemandFactoring.CurrentPeriod != 1 || reg.DemandFactoring.TrailingPeriodPurchases[0] != 2 {
		t.Fatalf("period 0 not closed correctly")
	}
}

func TestProcessIsAtomic(t *testing.T) {
	engine, recorder := newTestEngine(t)
	reg := newTestRegistry(t)
	before := digest(t, reg)

	returned, _, err := engine.Process(reg, alice, at(5_000), ExtendRecord{Name: "missing-record", Years: 1})
	expectKind(t, err, coreerrors.ErrNotFound)
	if returned != reg || digest(t, reg) != before {
		t.Fatalf("failed process must leave the registry untouched")
	}
	if reg.DemandFactoring.CurrentPeriod != 0 {
		t.Fatalf("tick leaked from a failed process")
	}
	if len(recorder.Events()) != 0 {
		t.Fatalf("no events expected, got %v", recorder.Types())
	}

	ticked, adjustments, err := engine.Tick(reg, at(5_000))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(adjustments) != 6 || ticked.DemandFactoring.CurrentPeriod != 6 {
		t.Fatalf("expected six closed periods, got %d", len(adjustments))
	}
}

func TestPausedModuleRejectsCommands(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.SetPauses(common.StaticPauses{"names": true})
	_, _, err := engine.BuyRecord(newTestRegistry(t), alice, at(1), BuyRecord{Name: "paused-name"})
	if !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if kind := coreerrors.KindOf(err); kind != coreerrors.KindConflict {
		t.Fatalf("paused rejection classified as %s", kind)
	}
}

func TestCreateReservedName(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := newTestRegistry(t)
	block := at(1)

	_, err := engine.CreateReservedName(reg, alice, block, "brand", types.ReservedName{Target: alice.String()})
	expectKind(t, err, coreerrors.ErrConflict)

	_, err = engine.CreateReservedName(reg, treasury, block, "brand", types.ReservedName{EndTimestamp: block.Timestamp - 1})
	expectKind(t, err, coreerrors.ErrInvalidInput)

	next, err := engine.CreateReservedName(reg, treasury, block, "Brand", types.ReservedName{Target: alice.String()})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if reservation, ok := next.GetReserved("brand"); !ok || reservation.Target != alice.String() {
		t.Fatalf("reservation not stored: %+v", reservation)
	}
	if _, ok := reg.GetReserved("brand"); ok {
		t.Fatalf("input registry mutated")
	}

	withAuction, _, err := engine.SubmitAuctionBid(reg, alice, block, SubmitAuctionBid{Name: "auctioned-brand"})
	if err != nil {
		t.Fatalf("open auction: %v", err)
	}
	_, err = engine.CreateReservedName(withAuction, treasury, block, "auctioned-brand", types.ReservedName{})
	expectKind(t, err, coreerrors.ErrConflict)
}

type countingObserver struct {
	commands  map[Kind]int
	failures  int
	purchases int
	auctions  []auction.OutcomeKind
}

func (o *countingObserver) ObserveCommand(kind Kind, err error) {
	if o.commands == nil {
		o.commands = make(map[Kind]int)
	}
	o.commands[kind]++
	if err != nil {
		o.failures++
	}
}

func (o *countingObserver) ObservePurchase(Kind, *big.Int) { o.purchases++ }

func (o *countingObserver) ObserveAuction(outcome auction.OutcomeKind) {
	o.auctions = append(o.auctions, outcome)
}

func (o *countingObserver) ObserveDemandFactor(*big.Int) {}

func TestObserverSeesPurchasesOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	observer := &countingObserver{}
	engine.SetObserver(observer)
	reg := newTestRegistry(t)

	reg, _, err := engine.SubmitAuctionBid(reg, alice, at(1), SubmitAuctionBid{Name: "new-auction"})
	if err != nil {
		t.Fatalf("open auction: %v", err)
	}
	if _, _, err := engine.BuyRecord(reg, alice, at(1), BuyRecord{Name: "new-auction"}); err == nil {
		t.Fatalf("expected conflict")
	}
	if _, _, err := engine.BuyRecord(reg, alice, at(1), BuyRecord{Name: "free-name"}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if observer.purchases != 1 || observer.failures != 1 || observer.commands[KindBuyRecord] != 2 {
		t.Fatalf("unexpected observer state %+v", observer)
	}
	if len(observer.auctions) != 1 || observer.auctions[0] != auction.OutcomeCreated {
		t.Fatalf("unexpected auction outcomes %v", observer.auctions)
	}
}
