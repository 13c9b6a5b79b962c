package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
)

var (
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B") // Accent
	Yellow  = lipgloss.Color("#FFB500") // Warnings, reconnecting
	Green   = lipgloss.Color("#2AFFAA") // Success, connected
	Red     = lipgloss.Color("#FF5555") // Errors, disconnected
	Blue    = lipgloss.Color("#3B82F6") // Info
	Purple  = lipgloss.Color("#8B5CF6") // Secondary accent

	Base03 = lipgloss.Color("#1B1D23") // Background
	Base02 = lipgloss.Color("#262831") // Darker background
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background    lipgloss.Color
	BackgroundAlt lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background:    Base03,
		BackgroundAlt: Base02,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,
	}
}

// ConnectionColor maps a connection status to its indicator color.
func ConnectionColor(s realtime.Status) lipgloss.Color {
	switch s {
	case realtime.Connected:
		return Green
	case realtime.Reconnecting:
		return Yellow
	default:
		return Red
	}
}

// OrderStatusColor maps an order status to its badge color.
func OrderStatusColor(s order.Status) lipgloss.Color {
	switch s {
	case order.StatusPending:
		return Yellow
	case order.StatusProcessing:
		return Blue
	case order.StatusShipped:
		return Purple
	case order.StatusDelivered:
		return Green
	case order.StatusCancelled:
		return Red
	default:
		return Base01
	}
}

// Badge renders text as a bold colored label.
func Badge(text string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(text)
}

var (
	palette = DefaultPalette()

	Title = lipgloss.NewStyle().Foreground(palette.Primary).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(palette.TextMuted)
	Error = lipgloss.NewStyle().Foreground(palette.Error)
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(palette.TextMuted).
		Padding(0, 1)
)
