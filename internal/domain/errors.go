package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMemoryNotFound      = errors.New("memory not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrPositionNotFound    = errors.New("stake position not found")
	ErrInsufficientBalance = errors.New("insufficient ATTN balance")
	ErrInvalidAmount       = errors.New("amount must be a positive finite number")
	ErrNotCreator          = errors.New("caller is not the memory creator")
	ErrCurveLocked         = errors.New("curve can only be updated before any players are added")
	ErrUserExists          = errors.New("user already exists")
	ErrCreatorExists       = errors.New("every memory already has a creator")
	ErrInvalidRole         = errors.New("invalid role")
	ErrSimulationNotFound  = errors.New("simulation not found")
)

type FormulaErrorKind string

const (
	FormulaErrorSyntax           FormulaErrorKind = "syntax"
	FormulaErrorEvaluationDomain FormulaErrorKind = "evaluation_domain"
)

// FormulaError reports a price formula that failed to parse or to evaluate.
type FormulaError struct {
	Kind    FormulaErrorKind
	Formula string
	Pos     int
	Err     error
}

func (e *FormulaError) Error() string {
	switch e.Kind {
	case FormulaErrorSyntax:
		return fmt.Sprintf("formula %q: syntax error at offset %d: %v", e.Formula, e.Pos, e.Err)
	default:
		return fmt.Sprintf("formula %q: evaluation failed: %v", e.Formula, e.Err)
	}
}

func (e *FormulaError) Unwrap() error {
	return e.Err
}

// ValuationError reports an integration step that hit a price which cannot
// be divided into: zero, negative, or NaN.
type ValuationError struct {
	Step  int
	TVL   float64
	Price float64
}

func (e *ValuationError) Error() string {
	return fmt.Sprintf("non-positive price %g at tvl %g (integration step %d)", e.Price, e.TVL, e.Step)
}

// IsFormulaError reports whether err carries a FormulaError of the given kind.
func IsFormulaError(err error, kind FormulaErrorKind) bool {
	var formulaErr *FormulaError
	if !errors.As(err, &formulaErr) {
		return false
	}
	return formulaErr.Kind == kind
}
