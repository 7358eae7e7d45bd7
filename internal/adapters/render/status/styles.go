package status

import (
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	account    lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	key        lipgloss.Style
	meta       lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
	phases     map[domain.Phase]lipgloss.Style
}

func newStyles() styles {
	phase := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}

	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		account:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		key:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		meta:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		phases: map[domain.Phase]lipgloss.Style{
			domain.PhaseQueued:              phase("250"),
			domain.PhaseQueuedPlayer:        phase("250"),
			domain.PhaseLaunching:           phase("221"),
			domain.PhaseRunning:             phase("114"),
			domain.PhaseRunningPlayer:       phase("81"),
			domain.PhaseRestarting:          phase("221"),
			domain.PhaseRetryBackoff:        phase("203"),
			domain.PhaseDisconnected:        phase("244"),
			domain.PhaseDisconnectedRunning: phase("244"),
			domain.PhaseWaitingRejoin:       phase("215"),
			domain.PhasePlayerGrace:         phase("141"),
		},
	}
}

func (s styles) phase(p domain.Phase) lipgloss.Style {
	if style, ok := s.phases[p]; ok {
		return style
	}
	return s.detail
}
