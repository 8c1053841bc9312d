package demand

import (
	"errors"
	"math/big"

	safemath "github.com/ethereum/go-ethereum/common/math"

	"arns/native/common"
)

var (
	errNilState        = errors.New("demand engine: state not initialised")
	errNegativeRevenue = errors.New("demand engine: purchase price must not be negative")
	errCounterOverflow = errors.New("demand engine: counter overflow")
)

// State is the rolling demand telemetry for the registry. The trailing arrays
// are circular buffers indexed by PeriodIndex.
type State struct {
	PeriodZeroBlockHeight uint64
	CurrentPeriod         uint64

	TrailingPeriodPurchases [TrailingPeriodCount]uint64
	TrailingPeriodRevenues  [TrailingPeriodCount]*big.Int

	PurchasesThisPeriod uint64
	RevenueThisPeriod   *big.Int

	// DemandFactor is ray-scaled (see common.Ray).
	DemandFactor                          *big.Int
	ConsecutivePeriodsWithMinDemandFactor uint64
}

// Direction describes how a period boundary moved the demand factor.
type Direction string

const (
	DirectionUp        Direction = "up"
	DirectionDown      Direction = "down"
	DirectionUnchanged Direction = "unchanged"
)

// Adjustment records the outcome of closing one period.
type Adjustment struct {
	Period    uint64
	Direction Direction
	Previous  *big.Int
	Next      *big.Int
	Purchases uint64
	Revenue   *big.Int
}

// NewState returns genesis telemetry anchored at periodZeroHeight.
func NewState(periodZeroHeight uint64, settings Settings) *State {
	s := &State{
		PeriodZeroBlockHeight: periodZeroHeight,
		DemandFactor:          common.RatToRay(settings.BaseFactor),
	}
	s.ensureDefaults()
	return s
}

func (s *State) ensureDefaults() {
	for i := range s.TrailingPeriodRevenues {
		if s.TrailingPeriodRevenues[i] == nil {
			s.TrailingPeriodRevenues[i] = big.NewInt(0)
		}
	}
	if s.RevenueThisPeriod == nil {
		s.RevenueThisPeriod = big.NewInt(0)
	}
	if s.DemandFactor == nil {
		s.DemandFactor = new(big.Int).Set(common.Ray)
	}
}

// Clone returns a deep copy of the telemetry.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	for i, rev := range s.TrailingPeriodRevenues {
		clone.TrailingPeriodRevenues[i] = common.CloneInt(rev)
	}
	clone.RevenueThisPeriod = common.CloneInt(s.RevenueThisPeriod)
	clone.DemandFactor = common.CloneInt(s.DemandFactor)
	return &clone
}

// Factor returns the demand factor as an exact rational.
func (s *State) Factor() *big.Rat {
	if s == nil {
		return big.NewRat(1, 1)
	}
	return common.RayToRat(s.DemandFactor)
}

// FactorRay returns a copy of the ray-scaled demand factor.
func (s *State) FactorRay() *big.Int {
	if s == nil || s.DemandFactor == nil {
		return new(big.Int).Set(common.Ray)
	}
	return new(big.Int).Set(s.DemandFactor)
}

// RecordPurchase tallies one settled purchase. The demand factor itself only
// moves when a period closes.
func (s *State) RecordPurchase(price *big.Int) error {
	if s == nil {
		return errNilState
	}
	s.ensureDefaults()
	if price != nil && price.Sign() < 0 {
		return errNegativeRevenue
	}
	purchases, overflow := safemath.SafeAdd(s.PurchasesThisPeriod, 1)
	if overflow {
		return errCounterOverflow
	}
	s.PurchasesThisPeriod = purchases
	if price != nil {
		s.RevenueThisPeriod = new(big.Int).Add(s.RevenueThisPeriod, price)
	}
	return nil
}

// TickHeight advances to the period containing height.
func (s *State) TickHeight(height uint64, settings Settings) ([]Adjustment, error) {
	if s == nil {
		return nil, errNilState
	}
	return s.Tick(settings.PeriodAtHeight(height, s.PeriodZeroBlockHeight), settings)
}

// Tick closes every period boundary between CurrentPeriod and newPeriod in
// order, including periods without activity. Ticking to the current or an
// earlier period is a no-op.
func (s *State) Tick(newPeriod uint64, settings Settings) ([]Adjustment, error) {
	if s == nil {
		return nil, errNilState
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	s.ensureDefaults()
	if newPeriod <= s.CurrentPeriod {
		return nil, nil
	}
	minFactor := common.RatToRay(settings.MinFactor)
	upFactor := common.RatToRay(new(big.Rat).Add(big.NewRat(1, 1), settings.UpAdjustment))
	downFactor := common.RatToRay(new(big.Rat).Sub(big.NewRat(1, 1), settings.DownAdjustment))

	adjustments := make([]Adjustment, 0, newPeriod-s.CurrentPeriod)
	for s.CurrentPeriod < newPeriod {
		closed := s.CurrentPeriod
		slot := PeriodIndex(closed)
		previous := new(big.Int).Set(s.DemandFactor)

		direction := DirectionUnchanged
		switch s.compareClosedPeriod(slot, settings) {
		case 1:
			direction = DirectionUp
			s.DemandFactor = common.RayMul(s.DemandFactor, upFactor)
		case -1:
			if s.DemandFactor.Cmp(minFactor) > 0 {
				direction = DirectionDown
				next := common.RayMul(s.DemandFactor, downFactor)
				if next.Cmp(minFactor) < 0 {
					next = new(big.Int).Set(minFactor)
				}
				s.DemandFactor = next
			}
		}
		if s.DemandFactor.Cmp(minFactor) < 0 {
			s.DemandFactor = new(big.Int).Set(minFactor)
		}

		if s.DemandFactor.Cmp(minFactor) == 0 {
			count, overflow := safemath.SafeAdd(s.ConsecutivePeriodsWithMinDemandFactor, 1)
			if overflow {
				return nil, errCounterOverflow
			}
			s.ConsecutivePeriodsWithMinDemandFactor = count
		} else {
			s.ConsecutivePeriodsWithMinDemandFactor = 0
		}

		adjustments = append(adjustments, Adjustment{
			Period:    closed,
			Direction: direction,
			Previous:  previous,
			Next:      new(big.Int).Set(s.DemandFactor),
			Purchases: s.PurchasesThisPeriod,
			Revenue:   new(big.Int).Set(s.RevenueThisPeriod),
		})

		s.TrailingPeriodPurchases[slot] = s.PurchasesThisPeriod
		s.TrailingPeriodRevenues[slot] = s.RevenueThisPeriod
		s.PurchasesThisPeriod = 0
		s.RevenueThisPeriod = big.NewInt(0)
		s.CurrentPeriod = closed + 1
	}
	return adjustments, nil
}

// compareClosedPeriod returns the sign of (closed activity - baseline).
func (s *State) compareClosedPeriod(slot int, settings Settings) int {
	current := new(big.Int)
	baseline := new(big.Int)
	switch settings.Criteria {
	case CriteriaPurchases:
		current.SetUint64(s.PurchasesThisPeriod)
		if settings.Baseline == BaselineMovingAverage {
			for _, purchases := range s.TrailingPeriodPurchases {
				baseline.Add(baseline, new(big.Int).SetUint64(purchases))
			}
		} else {
			baseline.SetUint64(s.TrailingPeriodPurchases[slot])
		}
	default:
		current.Set(s.RevenueThisPeriod)
		if settings.Baseline == BaselineMovingAverage {
			for _, revenue := range s.TrailingPeriodRevenues {
				baseline.Add(baseline, revenue)
			}
		} else {
			baseline.Set(s.TrailingPeriodRevenues[slot])
		}
	}
	if settings.Baseline == BaselineMovingAverage {
		// current > sum/7  <=>  current*7 > sum
		current.Mul(current, big.NewInt(TrailingPeriodCount))
	}
	return current.Cmp(baseline)
}
