package names

import (
	"errors"
	"math/big"

	coreerrors "arns/core/errors"
	"arns/core/events"
	"arns/core/state"
	"arns/core/types"
	"arns/crypto"
	"arns/native/auction"
	"arns/native/common"
	"arns/native/demand"
	"arns/native/fees"
)

var errNilRegistry = errors.New("names engine: registry not provided")

// Observer receives a summary of every processed command. Implementations must
// not influence state.
type Observer interface {
	ObserveCommand(kind Kind, err error)
	ObservePurchase(kind Kind, price *big.Int)
	ObserveAuction(outcome auction.OutcomeKind)
	ObserveDemandFactor(factorRay *big.Int)
}

type noopObserver struct{}

func (noopObserver) ObserveCommand(Kind, error)         {}
func (noopObserver) ObservePurchase(Kind, *big.Int)     {}
func (noopObserver) ObserveAuction(auction.OutcomeKind) {}
func (noopObserver) ObserveDemandFactor(*big.Int)       {}

// Result summarises a successful command.
type Result struct {
	Kind   Kind
	Name   string
	Price  *big.Int
	Record *types.Record
	// Auction is set for SubmitAuctionBid.
	Auction *auction.Outcome
	Events  []*types.Event
}

// Engine is the registration orchestrator. Every entry point clones the
// registry, applies the command to the clone and returns the clone only when
// the command succeeded; the registry passed in is never mutated.
type Engine struct {
	cfg      Config
	emitter  events.Emitter
	observer Observer
	pauses   common.PauseView
}

// NewEngine constructs an orchestrator enforcing cfg.
func NewEngine(cfg Config) (*Engine, error) {
	cfg.Demand.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg.clone(), emitter: events.NoopEmitter{}, observer: noopObserver{}}, nil
}

// Config returns a copy of the rules in force.
func (e *Engine) Config() Config { return e.cfg.clone() }

// SetEmitter wires the sink for registry events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetObserver wires a metrics observer.
func (e *Engine) SetObserver(observer Observer) {
	if e == nil {
		return
	}
	if observer == nil {
		observer = noopObserver{}
	}
	e.observer = observer
}

func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// execution carries one invocation's working copy and buffered events.
type execution struct {
	reg    *state.Registry
	caller crypto.Address
	block  types.BlockContext
	events []events.Event
	// ticked is set when at least one demand period closed.
	ticked bool
}

func (x *execution) emit(evt events.Event) { x.events = append(x.events, evt) }

func (e *Engine) begin(reg *state.Registry, caller crypto.Address, block types.BlockContext) (*execution, error) {
	if reg == nil {
		return nil, errNilRegistry
	}
	return &execution{reg: reg.Clone(), caller: caller, block: block}, nil
}

func (e *Engine) commit(x *execution) []*types.Event {
	out := make([]*types.Event, 0, len(x.events))
	for _, evt := range x.events {
		e.emitter.Emit(evt)
		out = append(out, evt.Event())
	}
	if x.ticked {
		e.observer.ObserveDemandFactor(x.reg.DemandFactor())
	}
	return out
}

// Apply executes cmd against a copy of reg.
func (e *Engine) Apply(reg *state.Registry, caller crypto.Address, block types.BlockContext, cmd Command) (*state.Registry, *Result, error) {
	x, err := e.begin(reg, caller, block)
	if err != nil {
		return nil, nil, err
	}
	res, err := e.apply(x, cmd)
	if err != nil {
		return reg, nil, err
	}
	res.Events = e.commit(x)
	return x.reg, res, nil
}

// Process advances demand accounting to block.Height and then applies cmd.
// Both steps commit together or not at all.
func (e *Engine) Process(reg *state.Registry, caller crypto.Address, block types.BlockContext, cmd Command) (*state.Registry, *Result, error) {
	x, err := e.begin(reg, caller, block)
	if err != nil {
		return nil, nil, err
	}
	if _, err := e.tick(x); err != nil {
		return reg, nil, err
	}
	res, err := e.apply(x, cmd)
	if err != nil {
		return reg, nil, err
	}
	res.Events = e.commit(x)
	return x.reg, res, nil
}

// Tick closes every demand period that ended before block.Height.
func (e *Engine) Tick(reg *state.Registry, block types.BlockContext) (*state.Registry, []demand.Adjustment, error) {
	x, err := e.begin(reg, crypto.Address{}, block)
	if err != nil {
		return nil, nil, err
	}
	adjustments, err := e.tick(x)
	if err != nil {
		return reg, nil, err
	}
	e.commit(x)
	return x.reg, adjustments, nil
}

func (e *Engine) BuyRecord(reg *state.Registry, caller crypto.Address, block types.BlockContext, cmd BuyRecord) (*state.Registry, *Result, error) {
	return e.Apply(reg, caller, block, cmd)
}

func (e *Engine) ExtendRecord(reg *state.Registry, caller crypto.Address, block types.BlockContext, cmd ExtendRecord) (*state.Registry, *Result, error) {
	return e.Apply(reg, caller, block, cmd)
}

func (e *Engine) IncreaseUndernameCount(reg *state.Registry, caller crypto.Address, block types.BlockContext, cmd IncreaseUndernameCount) (*state.Registry, *Result, error) {
	return e.Apply(reg, caller, block, cmd)
}

func (e *Engine) SubmitAuctionBid(reg *state.Registry, caller crypto.Address, block types.BlockContext, cmd SubmitAuctionBid) (*state.Registry, *Result, error) {
	return e.Apply(reg, caller, block, cmd)
}

func (e *Engine) tick(x *execution) ([]demand.Adjustment, error) {
	adjustments, err := x.reg.DemandFactoring.TickHeight(x.block.Height, e.cfg.Demand)
	if err != nil {
		return nil, err
	}
	for _, adj := range adjustments {
		x.emit(events.DemandAdjusted{
			Period:    adj.Period,
			Direction: string(adj.Direction),
			Previous:  common.RayToRat(adj.Previous).FloatString(6),
			Next:      common.RayToRat(adj.Next).FloatString(6),
			Purchases: adj.Purchases,
			Revenue:   adj.Revenue,
		})
	}
	if len(adjustments) > 0 {
		x.ticked = true
	}
	return adjustments, nil
}

func (e *Engine) apply(x *execution, cmd Command) (res *Result, err error) {
	if cmd == nil {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, "names.apply", "command required")
	}
	defer func() { e.observer.ObserveCommand(cmd.Kind(), err) }()
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, coreerrors.Wrap(coreerrors.KindConflict, "names.apply", err)
	}
	switch c := cmd.(type) {
	case BuyRecord:
		res, err = e.buyRecord(x, c)
	case ExtendRecord:
		res, err = e.extendRecord(x, c)
	case IncreaseUndernameCount:
		res, err = e.increaseUndernameCount(x, c)
	case SubmitAuctionBid:
		res, err = e.submitAuctionBid(x, c)
	default:
		return nil, coreerrors.Newf(coreerrors.KindInvalidInput, "names.apply", "unsupported command %T", cmd)
	}
	if err != nil {
		return nil, err
	}
	if res.Price != nil && res.Price.Sign() > 0 && purchased(res) {
		e.observer.ObservePurchase(res.Kind, res.Price)
	}
	return res, nil
}

// purchased reports whether the command settled a purchase. Opening an
// auction only escrows the floor.
func purchased(res *Result) bool {
	return res.Auction == nil || res.Auction.Kind != auction.OutcomeCreated
}

func (e *Engine) calculator(reg *state.Registry) *fees.Calculator {
	return fees.NewCalculator(reg.FeeSchedule(), e.cfg.Fees)
}

// charge moves price from the caller to the treasury.
func (e *Engine) charge(x *execution, op string, price *big.Int) error {
	if !x.reg.HasSufficientBalance(x.caller, price) {
		return coreerrors.Newf(coreerrors.KindInsufficientFunds, op, "balance %s below price %s", x.reg.Balance(x.caller), price)
	}
	if err := x.reg.Debit(x.caller, price); err != nil {
		return err
	}
	return x.reg.Credit(e.cfg.Treasury, price)
}
