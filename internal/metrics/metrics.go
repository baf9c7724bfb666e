// Package metrics records simulation activity in a private prometheus
// registry.
package metrics

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/memsim/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "memsim"

const (
	OutcomeOK                  = "ok"
	OutcomeNotFound            = "not_found"
	OutcomeInsufficientBalance = "insufficient_balance"
	OutcomeInvalidAmount       = "invalid_amount"
	OutcomeNotCreator          = "not_creator"
	OutcomeCurveLocked         = "curve_locked"
	OutcomeFormula             = "formula_error"
	OutcomeValuation           = "valuation_error"
	OutcomeError               = "error"
)

type Recorder struct {
	registry   *prometheus.Registry
	fallbacks  prometheus.Counter
	minted     *prometheus.CounterVec
	operations *prometheus.CounterVec
	vaults     *prometheus.GaugeVec
	supply     *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "formula_fallbacks_total",
			Help:      "Price evaluations that fell back to the default curve.",
		}),
		minted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_minted_total",
			Help:      "Memory tokens minted by stakes.",
		}, []string{"memory"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Simulation operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		vaults: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vault_balance_attn",
			Help:      "Vault balances per memory.",
		}, []string{"memory", "vault"}),
		supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_tokens_outstanding",
			Help:      "Outstanding memory tokens per memory.",
		}, []string{"memory"}),
	}

	r.registry.MustRegister(r.fallbacks, r.minted, r.operations, r.vaults, r.supply)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// FormulaFallback has the shape of formula.FallbackHook.
func (r *Recorder) FormulaFallback(string, float64, error) {
	if r == nil {
		return
	}
	r.fallbacks.Inc()
}

func (r *Recorder) TokensMinted(memoryID domain.MemoryID, tokens float64) {
	if r == nil || tokens <= 0 {
		return
	}
	r.minted.WithLabelValues(string(memoryID)).Add(tokens)
}

func (r *Recorder) Operation(operation string, err error) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

func (r *Recorder) ObserveMemory(memory domain.Memory) {
	if r == nil {
		return
	}
	id := string(memory.ID)
	r.vaults.WithLabelValues(id, "principle").Set(memory.PrincipleVault)
	r.vaults.WithLabelValues(id, "revenue").Set(memory.RevenueVault)
	r.vaults.WithLabelValues(id, "creator").Set(memory.CreatorVault)
	r.supply.WithLabelValues(id).Set(memory.TotalMemoryTokens)
}

// WriteText writes every metric in the prometheus text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("encode metric %s: %w", family.GetName(), err)
		}
	}
	return nil
}

// Outcome maps an operation error to its metric label.
func Outcome(err error) string {
	var valuationErr *domain.ValuationError
	var formulaErr *domain.FormulaError

	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrMemoryNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrPositionNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrInsufficientBalance):
		return OutcomeInsufficientBalance
	case errors.Is(err, domain.ErrInvalidAmount):
		return OutcomeInvalidAmount
	case errors.Is(err, domain.ErrNotCreator):
		return OutcomeNotCreator
	case errors.Is(err, domain.ErrCurveLocked):
		return OutcomeCurveLocked
	case errors.As(err, &valuationErr):
		return OutcomeValuation
	case errors.As(err, &formulaErr):
		return OutcomeFormula
	default:
		return OutcomeError
	}
}
