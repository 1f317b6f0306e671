package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("248")).
			Padding(0, 1)

	statusErrorStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("236")).
				Foreground(lipgloss.Color("203")).
				Padding(0, 1)

	focusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	blurredBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	cursorLineStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true)

	schemaIconStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	tableIconStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("71"))
	viewIconStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
	columnIconStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	gridHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	cellCursorStyle = lipgloss.NewStyle().Reverse(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	inputBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1)
)
