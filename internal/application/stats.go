package application

import (
	"sort"

	"github.com/bnema/memsim/internal/domain"
	"github.com/bnema/memsim/internal/ledger"
)

type PotentialRedemption struct {
	Principle float64
	Revenue   float64
	Creator   float64
	Total     float64
}

// PlayerStats is one user's standing on one memory. It is derived on read
// and never stored.
type PlayerStats struct {
	Address             domain.Address
	Role                domain.Role
	AttnBalance         float64
	MemoryTokens        float64
	StakedAmount        float64
	PotentialRedemption PotentialRedemption
	TotalValue          float64
	InjectedAmount      float64

	HoldingPercent    float64
	AverageTokenPrice float64
	ProfitLoss        float64
	// ProfitLossPercent is undefined for creators and left at zero.
	ProfitLossPercent float64
	Redeemed          bool
}

// DerivePlayerStats computes a user's stats on memory without the columns
// that depend on other players.
func DerivePlayerStats(user domain.User, memory domain.Memory) PlayerStats {
	stats := PlayerStats{
		Address:      user.Address,
		Role:         user.Role,
		AttnBalance:  user.AttnBalance,
		MemoryTokens: user.Holding(memory.ID),
		StakedAmount: user.StakedOn(memory.ID),
	}

	switch user.Role {
	case domain.RoleStaker:
		positions := user.PositionsOn(memory.ID)
		if len(positions) > 0 {
			combined := domain.StakePosition{MemoryID: memory.ID}
			tokens := make([]float64, 0, len(positions))
			for _, position := range positions {
				combined.AttnAmount += position.AttnAmount
				tokens = append(tokens, position.MemoryTokens)
			}
			combined.MemoryTokens = canonicalSum(tokens)

			redemption := ledger.RedeemValue(combined, memory)
			stats.PotentialRedemption = PotentialRedemption{
				Principle: redemption.Principle,
				Revenue:   redemption.Revenue,
				Total:     redemption.Total(),
			}
		}
		stats.TotalValue = stats.PotentialRedemption.Total
		stats.Redeemed = len(positions) == 0 && user.RedeemedAmount > 0
	case domain.RoleAdvertiser:
		stats.InjectedAmount = user.InjectedAmount
		stats.TotalValue = user.InjectedAmount
	case domain.RoleCreator:
		if memory.Creator == user.Address {
			stats.PotentialRedemption = PotentialRedemption{
				Creator: memory.CreatorVault,
				Total:   memory.CreatorVault,
			}
			stats.TotalValue = memory.CreatorVault
		}
	}

	stats.ProfitLoss = stats.PotentialRedemption.Total - stats.StakedAmount
	if stats.StakedAmount > 0 && user.Role != domain.RoleCreator {
		stats.ProfitLossPercent = stats.ProfitLoss / stats.StakedAmount * 100
	}
	if stats.MemoryTokens > 0 {
		stats.AverageTokenPrice = stats.StakedAmount / stats.MemoryTokens
	}

	return stats
}

// PlayerChart derives every user's stats on memory, with holding
// percentages relative to all tokens held by the listed users. Rows are
// ordered by total value, highest first.
func PlayerChart(users []domain.User, memory domain.Memory) []PlayerStats {
	rows := make([]PlayerStats, 0, len(users))
	held := make([]float64, 0, len(users))
	for _, user := range users {
		row := DerivePlayerStats(user, memory)
		rows = append(rows, row)
		held = append(held, row.MemoryTokens)
	}

	totalHeld := canonicalSum(held)
	if totalHeld > 0 {
		for i := range rows {
			rows[i].HoldingPercent = rows[i].MemoryTokens / totalHeld * 100
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalValue > rows[j].TotalValue
	})
	return rows
}
