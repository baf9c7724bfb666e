// Package curve converts ATTN deposits into memory tokens along the active
// bonding curve.
package curve

import (
	"github.com/bnema/memsim/internal/domain"
)

// Steps is the fixed number of left Riemann sum increments used for every
// mint. Changing it changes every minted amount.
const Steps = 100

// Pricer returns the memory-token price for a pair of vault balances.
type Pricer interface {
	Price(principleVault, revenueVault float64) float64
}

type Integrator struct {
	pricer Pricer
}

func NewIntegrator(pricer Pricer) *Integrator {
	return &Integrator{pricer: pricer}
}

// TokensToMint integrates 1/price while the principle vault rises from
// principleVault to principleVault+deposit, holding revenueVault fixed.
// Each step is priced at its left endpoint. A step priced at zero, below
// zero or NaN aborts the mint with a *domain.ValuationError.
func (i *Integrator) TokensToMint(deposit, principleVault, revenueVault float64) (float64, error) {
	stepSize := deposit / Steps
	var total float64

	for step := 0; step < Steps; step++ {
		principle := principleVault + float64(step)*stepSize
		price := i.pricer.Price(principle, revenueVault)
		if !(price > 0) {
			return 0, &domain.ValuationError{Step: step, TVL: principle + revenueVault, Price: price}
		}
		total += stepSize / price
	}

	return total, nil
}
