package application

import (
	"testing"

	"github.com/bnema/memsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePlayerStats(t *testing.T) {
	t.Parallel()

	memory := domain.Memory{
		ID:                "1",
		Name:              "Test Memory",
		Creator:           domain.SeedCreator,
		PrincipleVault:    700,
		RevenueVault:      300,
		CreatorVault:      55,
		TotalMemoryTokens: 400,
	}

	stakerUser := staker("Staker_1")
	stakerUser.AttnBalance = 0
	stakerUser.MemoryTokens["1"] = 100
	stakerUser.StakePositions = []domain.StakePosition{{MemoryID: "1", AttnAmount: 1000, MemoryTokens: 100}}

	advertiser := domain.NewUser("Airdrop_1", domain.RoleAdvertiser, 900)
	advertiser.InjectedAmount = 100

	creator := domain.NewUser(domain.SeedCreator, domain.RoleCreator, 1000)

	redeemed := staker("Staker_2")
	redeemed.AttnBalance = 1020
	redeemed.RedeemedAmount = 520

	tests := []struct {
		name string
		user domain.User
		want PlayerStats
	}{
		{
			name: "staker",
			user: stakerUser,
			want: PlayerStats{
				Address:             "Staker_1",
				Role:                domain.RoleStaker,
				MemoryTokens:        100,
				StakedAmount:        1000,
				PotentialRedemption: PotentialRedemption{Principle: 700, Revenue: 75, Total: 775},
				TotalValue:          775,
				AverageTokenPrice:   10,
				ProfitLoss:          -225,
				ProfitLossPercent:   -22.5,
			},
		},
		{
			name: "advertiser",
			user: advertiser,
			want: PlayerStats{
				Address:        "Airdrop_1",
				Role:           domain.RoleAdvertiser,
				AttnBalance:    900,
				InjectedAmount: 100,
				TotalValue:     100,
			},
		},
		{
			name: "creator",
			user: creator,
			want: PlayerStats{
				Address:             domain.SeedCreator,
				Role:                domain.RoleCreator,
				AttnBalance:         1000,
				PotentialRedemption: PotentialRedemption{Creator: 55, Total: 55},
				TotalValue:          55,
				ProfitLoss:          55,
			},
		},
		{
			name: "redeemed staker",
			user: redeemed,
			want: PlayerStats{
				Address:     "Staker_2",
				Role:        domain.RoleStaker,
				AttnBalance: 1020,
				Redeemed:    true,
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := DerivePlayerStats(tc.user, memory)
			assert.InDelta(t, tc.want.PotentialRedemption.Total, got.PotentialRedemption.Total, delta)
			assert.InDelta(t, tc.want.ProfitLoss, got.ProfitLoss, delta)
			assert.InDelta(t, tc.want.ProfitLossPercent, got.ProfitLossPercent, delta)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPlayerChartOrdersByValueAndSharesHoldings(t *testing.T) {
	t.Parallel()

	sim := newTestSimulation(t, staker("Staker_1"), staker("Staker_2"), domain.NewUser("Advertiser_1", domain.RoleAdvertiser, 1000))
	_, err := sim.Stake(domain.SeedMemoryID, "Staker_1", 600)
	require.NoError(t, err)
	_, err = sim.Stake(domain.SeedMemoryID, "Staker_2", 600)
	require.NoError(t, err)
	_, err = sim.Boost(domain.SeedMemoryID, "Advertiser_1", 200)
	require.NoError(t, err)

	memory, err := sim.Memory(domain.SeedMemoryID)
	require.NoError(t, err)
	rows := PlayerChart(sim.Users(), memory)
	require.Len(t, rows, 4)

	assert.Equal(t, domain.Address("Staker_1"), rows[0].Address)
	assert.Equal(t, domain.Address("Staker_2"), rows[1].Address)
	assert.Equal(t, domain.Address("Advertiser_1"), rows[2].Address)
	assert.Equal(t, domain.SeedCreator, rows[3].Address)

	var percent float64
	for _, row := range rows {
		percent += row.HoldingPercent
	}
	assert.InDelta(t, 100, percent, 1e-6)
	assert.Greater(t, rows[0].HoldingPercent, rows[1].HoldingPercent)
	assert.InDelta(t, 70, rows[3].TotalValue, delta)
}

func TestPlayerChartWithoutHoldings(t *testing.T) {
	t.Parallel()

	sim := newTestSimulation(t)
	memory, err := sim.Memory(domain.SeedMemoryID)
	require.NoError(t, err)

	rows := PlayerChart(sim.Users(), memory)
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].HoldingPercent)
	assert.Zero(t, rows[0].TotalValue)
}
