package status

import (
	"testing"
	"time"

	"github.com/bnema/memsim/internal/application"
	"github.com/bnema/memsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOverview(now time.Time) application.Overview {
	return application.Overview{
		Memory: domain.Memory{
			ID:                "1",
			Name:              "Test Memory",
			Creator:           "Creator_1",
			PrincipleVault:    700,
			RevenueVault:      250,
			CreatorVault:      50,
			TotalMemoryTokens: 4268.5,
		},
		Price:   0.1305,
		Formula: "0.005*(tvl^0.6)+0.1",
		Players: []application.PlayerStats{
			{
				Address:             "Staker_1",
				Role:                domain.RoleStaker,
				MemoryTokens:        4268.5,
				StakedAmount:        1000,
				PotentialRedemption: application.PotentialRedemption{Principle: 700, Revenue: 250, Total: 950},
				TotalValue:          950,
				HoldingPercent:      100,
				AverageTokenPrice:   0.2343,
				ProfitLoss:          -50,
				ProfitLossPercent:   -5,
			},
			{
				Address:             "Creator_1",
				Role:                domain.RoleCreator,
				AttnBalance:         1000,
				PotentialRedemption: application.PotentialRedemption{Creator: 50, Total: 50},
				TotalValue:          50,
				ProfitLoss:          50,
			},
		},
		UpdatedAt: now.Add(-5 * time.Minute),
	}
}

func TestRenderMemoryOverview(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(sampleOverview(now), RenderOptions{Now: now})
	require.NoError(t, err)

	assert.Contains(t, output, "Memory: Test Memory (1)")
	assert.Contains(t, output, "creator: Creator_1")
	assert.Contains(t, output, "formula: 0.005*(tvl^0.6)+0.1 (locked)")
	assert.Contains(t, output, "updated 5 minutes ago")
	assert.Contains(t, output, "700.00 ATTN")
	assert.Contains(t, output, " 70%")
	assert.Contains(t, output, "TVL 950.00 ATTN")
	assert.Contains(t, output, "price 0.1305 ATTN/token")
	assert.Contains(t, output, "supply 4268.50 tokens")

	assert.Contains(t, output, "Player")
	assert.Contains(t, output, "Avg price")
	assert.Contains(t, output, "Staker_1")
	assert.Contains(t, output, "100.00%")
	assert.Contains(t, output, "-50.00 (-5.0%)")
	assert.Contains(t, output, "+50.00")
	assert.NotContains(t, output, "No players yet.")
}

func TestRenderWithoutPlayers(t *testing.T) {
	overview := application.Overview{
		Memory:        domain.Memory{ID: "1", Name: "Test Memory", Creator: "Creator_1"},
		Price:         0.1,
		Formula:       "tvl+1",
		CurveUnlocked: true,
	}

	output, err := Render(overview, RenderOptions{BarWidth: 10})
	require.NoError(t, err)

	assert.Contains(t, output, "(editable)")
	assert.Contains(t, output, "No players yet.")
	assert.Contains(t, output, "[----------]")
	assert.Contains(t, output, "  0%")
	assert.NotContains(t, output, "updated")
}

func TestRenderMarksRedeemedPlayers(t *testing.T) {
	overview := sampleOverview(time.Time{})
	overview.UpdatedAt = time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	overview.Players = append(overview.Players, application.PlayerStats{
		Address:     "Staker_2",
		Role:        domain.RoleStaker,
		AttnBalance: 1012.5,
		Redeemed:    true,
	})

	output, err := Render(overview, RenderOptions{})
	require.NoError(t, err)

	assert.Contains(t, output, "redeemed")
	assert.Contains(t, output, "1012.50")
	assert.Contains(t, output, "updated 2026-")
}

func TestRenderProgressBar(t *testing.T) {
	s := newStyles()

	tests := []struct {
		percent float64
		want    string
	}{
		{percent: 0, want: "[----]"},
		{percent: 50, want: "[==--]"},
		{percent: 100, want: "[====]"},
		{percent: 180, want: "[====]"},
		{percent: -3, want: "[----]"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, renderProgressBar(tc.percent, 4, s), "percent %v", tc.percent)
	}
}

func TestFormatUpdated(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		updated time.Time
		want    string
	}{
		{name: "zero", updated: time.Time{}, want: ""},
		{name: "seconds", updated: now.Add(-10 * time.Second), want: "updated just now"},
		{name: "one minute", updated: now.Add(-time.Minute), want: "updated 1 minute ago"},
		{name: "hours", updated: now.Add(-3 * time.Hour), want: "updated 3 hours ago"},
		{name: "days", updated: now.Add(-50 * time.Hour), want: "updated 09:00 on 12 Feb"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, formatUpdated(tc.updated, now), tc.name)
	}
}
