// Package ledger holds the fixed vault split rules and the redemption
// value of a stake position.
package ledger

import "github.com/bnema/memsim/internal/domain"

const (
	StakePrincipleShare = 0.70
	StakeRevenueShare   = 0.25
	StakeCreatorShare   = 0.05

	BoostRevenueShare = 0.95
	BoostCreatorShare = 0.05

	// RedeemPrincipleShare of the original deposit is always returned,
	// whatever the vaults hold at redemption time.
	RedeemPrincipleShare = 0.70
)

// Split is how one inflow is divided among a memory's vaults.
type Split struct {
	Principle float64
	Revenue   float64
	Creator   float64
}

func (s Split) Total() float64 {
	return s.Principle + s.Revenue + s.Creator
}

func SplitStake(amount float64) Split {
	return Split{
		Principle: amount * StakePrincipleShare,
		Revenue:   amount * StakeRevenueShare,
		Creator:   amount * StakeCreatorShare,
	}
}

// SplitBoost has no principle share: boosts never mint memory tokens.
func SplitBoost(amount float64) Split {
	return Split{
		Revenue: amount * BoostRevenueShare,
		Creator: amount * BoostCreatorShare,
	}
}

type Redemption struct {
	Principle float64
	Revenue   float64
}

func (r Redemption) Total() float64 {
	return r.Principle + r.Revenue
}

// RedeemValue is what position pays out of memory: 70% of the original
// deposit plus the position's pro-rata share of the revenue vault.
func RedeemValue(position domain.StakePosition, memory domain.Memory) Redemption {
	var share float64
	if memory.TotalMemoryTokens > 0 {
		share = position.MemoryTokens / memory.TotalMemoryTokens
	}

	return Redemption{
		Principle: position.AttnAmount * RedeemPrincipleShare,
		Revenue:   memory.RevenueVault * share,
	}
}

// Apply credits split to the memory's vaults.
func (s Split) Apply(memory domain.Memory) domain.Memory {
	memory.PrincipleVault += s.Principle
	memory.RevenueVault += s.Revenue
	memory.CreatorVault += s.Creator
	return memory
}
