package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mikey/mail-threat-analyzer/internal/core"
)

var (
	// Colors
	Primary = lipgloss.Color("#1cc2e3")
	Green   = lipgloss.Color("#10B981")
	Red     = lipgloss.Color("#EF4444")
	Yellow  = lipgloss.Color("#F59E0B")
	Gray    = lipgloss.Color("#6B7280")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().Foreground(Gray).Width(16)
	MutedStyle = lipgloss.NewStyle().Foreground(Gray)

	PassStyle = lipgloss.NewStyle().Bold(true).Foreground(Green)
	FailStyle = lipgloss.NewStyle().Bold(true).Foreground(Red)
	WarnStyle = lipgloss.NewStyle().Bold(true).Foreground(Yellow)

	VerdictBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)
)

// FormatAuthStatus styles an SPF/DKIM/DMARC outcome
func FormatAuthStatus(status core.AuthStatus) string {
	switch status {
	case core.AuthPass:
		return PassStyle.Render(string(status))
	case core.AuthFail:
		return FailStyle.Render(string(status))
	default:
		return WarnStyle.Render(string(status))
	}
}

// FormatRiskLevel styles a risk level
func FormatRiskLevel(level core.RiskLevel) string {
	switch level {
	case core.RiskHigh:
		return FailStyle.Render(string(level))
	case core.RiskMedium:
		return WarnStyle.Render(string(level))
	default:
		return PassStyle.Render(string(level))
	}
}

func riskColor(level core.RiskLevel) lipgloss.Color {
	switch level {
	case core.RiskHigh:
		return Red
	case core.RiskMedium:
		return Yellow
	default:
		return Green
	}
}
