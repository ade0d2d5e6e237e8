package app

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	headerMetaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	footerBusyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Background(lipgloss.Color("236")).Bold(true)
	dividerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	spinnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))

	systemLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	userLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	agentLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("70")).Bold(true)
	toolStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))
	toolErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	toolOutputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).PaddingLeft(2)
)
