package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/memsim/internal/application"
	"github.com/bnema/memsim/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type RenderOptions struct {
	Now time.Time
	// BarWidth is the width of the vault share bars. Zero means 24.
	BarWidth int
}

const defaultBarWidth = 24

var chartHeaders = []string{"Player", "Role", "ATTN", "Tokens", "Holding", "Staked", "Avg price", "Value", "P/L"}

func renderView(overview application.Overview, opts RenderOptions, s styles) string {
	memory := overview.Memory
	lines := []string{
		s.title.Render(fmt.Sprintf("Memory: %s (%s)", memory.Name, memory.ID)),
		s.header.Render(headerLine(overview, opts.Now)),
		s.section.Render(renderVaults(memory, opts, s)),
		s.detail.Render(fmt.Sprintf("TVL %s ATTN   price %s ATTN/token   supply %s tokens",
			formatAmount(memory.TVL()), formatPrice(overview.Price), formatAmount(memory.TotalMemoryTokens))),
	}

	if len(overview.Players) == 0 {
		lines = append(lines, s.section.Render(s.empty.Render("No players yet.")))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(renderChart(overview.Players, s)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(overview application.Overview, now time.Time) string {
	curve := "locked"
	if overview.CurveUnlocked {
		curve = "editable"
	}

	parts := []string{
		fmt.Sprintf("creator: %s", overview.Memory.Creator),
		fmt.Sprintf("formula: %s (%s)", overview.Formula, curve),
	}
	if updated := formatUpdated(overview.UpdatedAt, now); updated != "" {
		parts = append(parts, updated)
	}

	return strings.Join(parts, "   ")
}

func renderVaults(memory domain.Memory, opts RenderOptions, s styles) string {
	width := opts.BarWidth
	if width <= 0 {
		width = defaultBarWidth
	}

	total := memory.PrincipleVault + memory.RevenueVault + memory.CreatorVault
	vaults := []struct {
		name    string
		balance float64
	}{
		{name: "principle", balance: memory.PrincipleVault},
		{name: "revenue", balance: memory.RevenueVault},
		{name: "creator", balance: memory.CreatorVault},
	}

	lines := make([]string, 0, len(vaults))
	for _, vault := range vaults {
		var share float64
		if total > 0 {
			share = vault.balance / total * 100
		}

		percentStyle := lipgloss.NewStyle().Foreground(interpolateColor(share, 0, 100))
		lines = append(lines, lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.vaultKey.Render(vault.name),
			" ",
			renderProgressBar(share, width, s),
			" ",
			s.detail.Render(fmt.Sprintf("%s ATTN", formatAmount(vault.balance))),
			" ",
			percentStyle.Render(fmt.Sprintf("%3.0f%%", share)),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderChart(players []application.PlayerStats, s styles) string {
	rows := make([][]string, 0, len(players))
	for _, player := range players {
		rows = append(rows, chartRow(player))
	}

	plColumn := len(chartHeaders) - 1
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.tableBorder).
		Headers(chartHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.tableHeader
			}
			if col == plColumn && row >= 0 && row < len(players) {
				switch {
				case players[row].ProfitLoss > 0:
					return s.gain.Padding(0, 1)
				case players[row].ProfitLoss < 0:
					return s.loss.Padding(0, 1)
				}
			}
			return s.tableCell
		})

	return t.String()
}

func chartRow(player application.PlayerStats) []string {
	holding := "-"
	if player.MemoryTokens > 0 {
		holding = fmt.Sprintf("%.2f%%", player.HoldingPercent)
	}
	if player.Redeemed {
		holding = "redeemed"
	}

	avgPrice := "-"
	if player.AverageTokenPrice > 0 {
		avgPrice = formatPrice(player.AverageTokenPrice)
	}

	return []string{
		string(player.Address),
		string(player.Role),
		formatAmount(player.AttnBalance),
		formatAmount(player.MemoryTokens),
		holding,
		formatAmount(player.StakedAmount),
		avgPrice,
		formatAmount(player.TotalValue),
		profitLoss(player),
	}
}

func profitLoss(player application.PlayerStats) string {
	amount := fmt.Sprintf("%+.2f", player.ProfitLoss)
	if player.Role == domain.RoleCreator || player.StakedAmount == 0 {
		return amount
	}
	return fmt.Sprintf("%s (%+.1f%%)", amount, player.ProfitLossPercent)
}

func renderProgressBar(fillPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(fillPercent) / 100))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func formatUpdated(updatedAt, now time.Time) string {
	if updatedAt.IsZero() {
		return ""
	}
	if now.IsZero() {
		return "updated " + updatedAt.Format(time.RFC3339)
	}

	elapsed := now.Sub(updatedAt)
	switch {
	case elapsed < time.Minute:
		return "updated just now"
	case elapsed < time.Hour:
		return plural("updated %d %s ago", int(elapsed.Minutes()), "minute")
	case elapsed < 24*time.Hour:
		return plural("updated %d %s ago", int(elapsed.Hours()), "hour")
	default:
		return "updated " + updatedAt.Format("15:04 on 02 Jan")
	}
}

func plural(format string, n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf(format, n, unit)
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	colorCode := int(240 + 15*normalized)
	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
