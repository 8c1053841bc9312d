package observability

import (
	"errors"
	"math"
	"math/big"
	"strings"
	"sync"

	coreerrors "arns/core/errors"
	"arns/native/auction"
	"arns/native/common"
	"arns/native/names"

	"github.com/prometheus/client_golang/prometheus"
)

// NamesMetrics records registry activity. It implements names.Observer.
type NamesMetrics struct {
	commands     *prometheus.CounterVec
	purchases    *prometheus.CounterVec
	revenue      prometheus.Counter
	demandFactor prometheus.Gauge
	auctions     *prometheus.CounterVec
}

var (
	namesMetricsOnce sync.Once
	namesRegistry    *NamesMetrics
)

var _ names.Observer = (*NamesMetrics)(nil)

// Names returns the lazily-initialised registry metrics.
func Names() *NamesMetrics {
	namesMetricsOnce.Do(func() {
		namesRegistry = &NamesMetrics{
			commands: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "arns",
				Subsystem: "names",
				Name:      "commands_total",
				Help:      "Total registry commands segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "arns",
				Subsystem: "names",
				Name:      "purchases_total",
				Help:      "Count of settled purchases segmented by command kind.",
			}, []string{"kind"}),
			revenue: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "arns",
				Subsystem: "names",
				Name:      "revenue_total",
				Help:      "Sum of settled purchase prices in base units.",
			}),
			demandFactor: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "arns",
				Name:      "demand_factor",
				Help:      "Current demand factor applied to registry prices.",
			}),
			auctions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "arns",
				Name:      "auction_outcomes_total",
				Help:      "Count of auction bids segmented by resolution.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			namesRegistry.commands,
			namesRegistry.purchases,
			namesRegistry.revenue,
			namesRegistry.demandFactor,
			namesRegistry.auctions,
		)
	})
	return namesRegistry
}

// ObserveCommand counts a command by kind. Failures are labelled with the
// error kind so rejections can be told apart on dashboards.
func (m *NamesMetrics) ObserveCommand(kind names.Kind, err error) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(label(string(kind)), outcome(err)).Inc()
}

// ObservePurchase records one settled purchase.
func (m *NamesMetrics) ObservePurchase(kind names.Kind, price *big.Int) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(label(string(kind))).Inc()
	if value := bigToFloat(price); value > 0 {
		m.revenue.Add(value)
	}
}

// ObserveAuction counts an auction bid resolution.
func (m *NamesMetrics) ObserveAuction(kind auction.OutcomeKind) {
	if m == nil {
		return
	}
	m.auctions.WithLabelValues(label(string(kind))).Inc()
}

// ObserveDemandFactor publishes the ray-scaled factor as a float.
func (m *NamesMetrics) ObserveDemandFactor(ray *big.Int) {
	if m == nil || ray == nil {
		return
	}
	factor, _ := common.RayToRat(ray).Float64()
	m.demandFactor.Set(factor)
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, common.ErrModulePaused) {
		return "paused"
	}
	return coreerrors.KindOf(err).String()
}

func label(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
