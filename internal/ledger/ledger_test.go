package ledger

import (
	"testing"

	"github.com/bnema/memsim/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSplitsConserveAmount(t *testing.T) {
	t.Parallel()

	for _, amount := range []float64{0, 0.01, 1, 33.33, 1000, 123456.789} {
		stake := SplitStake(amount)
		assert.InDelta(t, amount, stake.Total(), 1e-9*(1+amount), "stake %v", amount)

		boost := SplitBoost(amount)
		assert.InDelta(t, amount, boost.Total(), 1e-9*(1+amount), "boost %v", amount)
		assert.Zero(t, boost.Principle)
	}
}

func TestSplitStakeRatios(t *testing.T) {
	t.Parallel()

	split := SplitStake(1000)

	assert.InDelta(t, 700, split.Principle, 1e-9)
	assert.InDelta(t, 250, split.Revenue, 1e-9)
	assert.InDelta(t, 50, split.Creator, 1e-9)
}

func TestSplitApplyCreditsVaults(t *testing.T) {
	t.Parallel()

	memory := domain.Memory{ID: "1", PrincipleVault: 10, RevenueVault: 20, CreatorVault: 30, TotalMemoryTokens: 5}

	got := SplitBoost(100).Apply(memory)

	assert.Equal(t, 10.0, got.PrincipleVault)
	assert.InDelta(t, 115, got.RevenueVault, 1e-9)
	assert.InDelta(t, 35, got.CreatorVault, 1e-9)
	assert.Equal(t, 5.0, got.TotalMemoryTokens)
}

func TestRedeemValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		position domain.StakePosition
		memory   domain.Memory
		want     Redemption
	}{
		{
			name:     "sole holder takes whole revenue vault",
			position: domain.StakePosition{AttnAmount: 1000, MemoryTokens: 40},
			memory:   domain.Memory{PrincipleVault: 700, RevenueVault: 250, TotalMemoryTokens: 40},
			want:     Redemption{Principle: 700, Revenue: 250},
		},
		{
			name:     "pro rata revenue",
			position: domain.StakePosition{AttnAmount: 200, MemoryTokens: 25},
			memory:   domain.Memory{PrincipleVault: 5000, RevenueVault: 400, TotalMemoryTokens: 100},
			want:     Redemption{Principle: 140, Revenue: 100},
		},
		{
			name:     "principle ignores vault state",
			position: domain.StakePosition{AttnAmount: 200, MemoryTokens: 25},
			memory:   domain.Memory{PrincipleVault: 1, RevenueVault: 0, TotalMemoryTokens: 100},
			want:     Redemption{Principle: 140, Revenue: 0},
		},
		{
			name:     "zero supply yields zero revenue",
			position: domain.StakePosition{AttnAmount: 10, MemoryTokens: 5},
			memory:   domain.Memory{RevenueVault: 400},
			want:     Redemption{Principle: 7, Revenue: 0},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := RedeemValue(tc.position, tc.memory)
			assert.InDelta(t, tc.want.Principle, got.Principle, 1e-9)
			assert.InDelta(t, tc.want.Revenue, got.Revenue, 1e-9)
		})
	}
}
