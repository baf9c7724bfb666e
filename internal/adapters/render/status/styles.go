package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title       lipgloss.Style
	header      lipgloss.Style
	detail      lipgloss.Style
	warning     lipgloss.Style
	section     lipgloss.Style
	empty       lipgloss.Style
	vaultKey    lipgloss.Style
	vaultMeta   lipgloss.Style
	barBracket  lipgloss.Style
	barFill     lipgloss.Style
	barEmpty    lipgloss.Style
	gain        lipgloss.Style
	loss        lipgloss.Style
	tableHeader lipgloss.Style
	tableCell   lipgloss.Style
	tableBorder lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:       lipgloss.NewStyle().Bold(true),
		header:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		detail:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:     lipgloss.NewStyle().MarginTop(1),
		empty:       lipgloss.NewStyle().Faint(true),
		vaultKey:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(10),
		vaultMeta:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		barBracket:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:     lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		gain:        lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		loss:        lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		tableHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1),
		tableCell:   lipgloss.NewStyle().Padding(0, 1),
		tableBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
