// Package formula evaluates user supplied bonding-curve price formulas over
// the single variable tvl.
package formula

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/bnema/memsim/internal/domain"
)

const (
	// DefaultFormula is the active formula of a new engine.
	DefaultFormula = "0.005 * (tvl^0.6) + 0.1"

	// ValidationTVL is the sample point a formula must evaluate at before it
	// is accepted.
	ValidationTVL = 100
)

// DefaultPrice is the hard-coded curve used whenever the active formula
// cannot produce a price.
func DefaultPrice(tvl float64) float64 {
	return 0.005*math.Pow(tvl, 0.6) + 0.1
}

// FallbackHook is called each time Evaluate falls back to DefaultPrice.
type FallbackHook func(formula string, tvl float64, err error)

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithFallbackHook(hook FallbackHook) Option {
	return func(e *Engine) {
		e.onFallback = hook
	}
}

// Engine holds the active price formula. It is safe for concurrent use.
type Engine struct {
	mu         sync.RWMutex
	active     *Expr
	logger     *slog.Logger
	onFallback FallbackHook
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	active, err := Compile(DefaultFormula)
	if err != nil {
		panic(fmt.Sprintf("default formula does not compile: %v", err))
	}
	e.active = active

	return e
}

// Validate compiles source and evaluates it once at ValidationTVL. A formula
// that parses but cannot be evaluated there is rejected.
func Validate(source string) (*Expr, error) {
	expr, err := Compile(source)
	if err != nil {
		return nil, err
	}
	if _, err := expr.Eval(ValidationTVL); err != nil {
		return nil, err
	}
	return expr, nil
}

// SetFormula validates source and makes it the active formula. On error the
// previous formula stays active.
func (e *Engine) SetFormula(source string) error {
	expr, err := Validate(source)
	if err != nil {
		return err
	}

	e.mu.Lock()
	previous := e.active.String()
	e.active = expr
	e.mu.Unlock()

	if previous != expr.String() {
		e.logger.Info("price formula replaced", slog.String("previous", previous), slog.String("formula", expr.String()))
	}
	return nil
}

func (e *Engine) Formula() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active.String()
}

// Evaluate returns the active formula's price at tvl. Evaluation failures
// never reach the caller: the default curve is used instead and the
// fallback is logged.
func (e *Engine) Evaluate(tvl float64) float64 {
	e.mu.RLock()
	active := e.active
	e.mu.RUnlock()

	price, err := active.Eval(tvl)
	if err == nil {
		return price
	}

	e.logger.Warn("price formula failed, using default curve",
		slog.String("formula", active.String()),
		slog.Float64("tvl", tvl),
		slog.Any("error", err),
	)
	if e.onFallback != nil {
		e.onFallback(active.String(), tvl, err)
	}

	return DefaultPrice(tvl)
}

// Price is the memory-token price for the given vault balances.
func (e *Engine) Price(principleVault, revenueVault float64) float64 {
	return e.Evaluate(principleVault + revenueVault)
}

// IsSyntaxError reports whether err is a formula parse failure.
func IsSyntaxError(err error) bool {
	return domain.IsFormulaError(err, domain.FormulaErrorSyntax)
}
