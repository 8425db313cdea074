package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorPrimary = lipgloss.Color("#0EA5E9") // Sky - brand color
	ColorSuccess = lipgloss.Color("#22C55E") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorInfo    = lipgloss.Color("#3B82F6") // Blue
	ColorSubtle  = lipgloss.Color("#6B7280") // Gray
	ColorMuted   = lipgloss.Color("#9CA3AF") // Light gray
)

const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "!"
	SymbolInfo    = "→"
	SymbolBullet  = "•"
)

var (
	BrandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(12)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorSubtle)

	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	// Email subjects and record ids
	CodeStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	HintStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)
)
