package demand

import (
	"fmt"
	"math/big"
	"strings"

	"arns/native/common"
)

const (
	// TrailingPeriodCount is the size of the circular purchase/revenue window.
	TrailingPeriodCount = 7
	// DefaultPeriodBlockLength is the number of blocks in one demand period.
	DefaultPeriodBlockLength uint64 = 720
)

// Criteria selects which activity metric drives demand adjustments.
type Criteria string

const (
	CriteriaRevenue   Criteria = "revenue"
	CriteriaPurchases Criteria = "purchases"
)

// Baseline selects what a closed period is compared against.
type Baseline string

const (
	// BaselineTrailingSlot compares against the period closed seven periods
	// earlier, i.e. the slot about to be overwritten.
	BaselineTrailingSlot Baseline = "trailing-slot"
	// BaselineMovingAverage compares against the mean of all seven slots.
	BaselineMovingAverage Baseline = "moving-average"
)

// Settings govern how the demand factor responds to activity.
type Settings struct {
	PeriodBlockLength uint64
	BaseFactor        *big.Rat
	MinFactor         *big.Rat
	UpAdjustment      *big.Rat
	DownAdjustment    *big.Rat
	Criteria          Criteria
	Baseline          Baseline
}

// DefaultSettings returns the genesis demand factoring configuration.
func DefaultSettings() Settings {
	return Settings{
		PeriodBlockLength: DefaultPeriodBlockLength,
		BaseFactor:        common.MustRat("1"),
		MinFactor:         common.MustRat("0.5"),
		UpAdjustment:      common.MustRat("0.05"),
		DownAdjustment:    common.MustRat("0.025"),
		Criteria:          CriteriaRevenue,
		Baseline:          BaselineTrailingSlot,
	}
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	clone := s
	clone.BaseFactor = common.CloneRat(s.BaseFactor)
	clone.MinFactor = common.CloneRat(s.MinFactor)
	clone.UpAdjustment = common.CloneRat(s.UpAdjustment)
	clone.DownAdjustment = common.CloneRat(s.DownAdjustment)
	return clone
}

// Normalize lower-cases enum values and fills blanks with defaults.
func (s *Settings) Normalize() {
	s.Criteria = Criteria(strings.ToLower(strings.TrimSpace(string(s.Criteria))))
	if s.Criteria == "" {
		s.Criteria = CriteriaRevenue
	}
	s.Baseline = Baseline(strings.ToLower(strings.TrimSpace(string(s.Baseline))))
	if s.Baseline == "" {
		s.Baseline = BaselineTrailingSlot
	}
	if s.PeriodBlockLength == 0 {
		s.PeriodBlockLength = DefaultPeriodBlockLength
	}
}

// Validate ensures the settings can only ever produce factors at or above the
// configured minimum.
func (s Settings) Validate() error {
	if s.PeriodBlockLength == 0 {
		return fmt.Errorf("demand: period block length must be positive")
	}
	if s.MinFactor == nil || s.MinFactor.Sign() <= 0 {
		return fmt.Errorf("demand: minimum factor must be positive")
	}
	if s.BaseFactor == nil || s.BaseFactor.Cmp(s.MinFactor) < 0 {
		return fmt.Errorf("demand: base factor must not be below the minimum")
	}
	if s.UpAdjustment == nil || s.UpAdjustment.Sign() < 0 {
		return fmt.Errorf("demand: up adjustment must not be negative")
	}
	if s.DownAdjustment == nil || s.DownAdjustment.Sign() < 0 || s.DownAdjustment.Cmp(big.NewRat(1, 1)) >= 0 {
		return fmt.Errorf("demand: down adjustment must be in [0, 1)")
	}
	switch s.Criteria {
	case CriteriaRevenue, CriteriaPurchases:
	default:
		return fmt.Errorf("demand: unknown criteria %q", s.Criteria)
	}
	switch s.Baseline {
	case BaselineTrailingSlot, BaselineMovingAverage:
	default:
		return fmt.Errorf("demand: unknown baseline %q", s.Baseline)
	}
	return nil
}

// PeriodAtHeight returns the period containing height for this configuration.
func (s Settings) PeriodAtHeight(height, periodZeroHeight uint64) uint64 {
	return periodAtHeight(height, periodZeroHeight, s.PeriodBlockLength)
}

// PeriodAtHeight returns floor((height-periodZero)/DefaultPeriodBlockLength),
// clamped at zero for heights before period zero.
func PeriodAtHeight(height, periodZeroHeight uint64) uint64 {
	return periodAtHeight(height, periodZeroHeight, DefaultPeriodBlockLength)
}

func periodAtHeight(height, periodZeroHeight, length uint64) uint64 {
	if length == 0 || height <= periodZeroHeight {
		return 0
	}
	return (height - periodZeroHeight) / length
}

// PeriodIndex maps a period onto its slot in the trailing window.
func PeriodIndex(period uint64) int {
	return int(period % TrailingPeriodCount)
}
