package ui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = lipgloss.Color("39")
	colorGreen  = lipgloss.Color("46")
	colorRed    = lipgloss.Color("196")
	colorMuted  = lipgloss.Color("241")
	colorPaper  = lipgloss.Color("255")
)

// Text styles
var (
	FocusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	BlurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	TitleStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).MarginLeft(2)
	HelpStyle    = lipgloss.NewStyle().Foreground(colorMuted).Margin(1, 0)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("140"))
)

// boxed is the rounded, padded frame shared by cards, seats and buttons.
var boxed = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1).
	Margin(0, 1)

// Cards: black and red faces, and a blue back for cards not yet dealt.
var (
	CardStyle       = boxed.Background(colorPaper).Foreground(lipgloss.Color("0"))
	RedCardStyle    = boxed.Background(colorPaper).Foreground(colorRed)
	HiddenCardStyle = boxed.Background(lipgloss.Color("17")).Foreground(colorAccent)
)

// Seats
var (
	PlayerBoxStyle     = boxed
	CurrentPlayerStyle = boxed.Border(lipgloss.ThickBorder()).BorderForeground(colorGreen)
	FoldedPlayerStyle  = boxed.BorderForeground(colorMuted).Foreground(colorMuted)
	AllInPlayerStyle   = boxed.BorderForeground(lipgloss.Color("214"))
)

// Pot and action buttons
var (
	PotStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorGreen)

	ActionButtonStyle   = boxed.Foreground(colorAccent).BorderForeground(colorAccent)
	DisabledButtonStyle = boxed.Foreground(colorMuted).BorderForeground(colorMuted)
)
