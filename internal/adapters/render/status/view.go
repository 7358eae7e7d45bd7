package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/bottingctl/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
	// StaleAfter flags snapshots older than this; zero disables the check.
	StaleAfter time.Duration
	// Names maps account ids to display names from the registry.
	Names map[domain.AccountID]string
}

func renderView(snapshot domain.SessionSnapshot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Botting Session"),
		s.header.Render(sessionHeader(snapshot, opts)),
	}

	if opts.StaleAfter > 0 && !opts.Now.IsZero() && !snapshot.TakenAt.IsZero() && opts.Now.Sub(snapshot.TakenAt) > opts.StaleAfter {
		lines = append(lines, s.warning.Render(fmt.Sprintf("[stale] last update %s ago", formatDuration(opts.Now.Sub(snapshot.TakenAt)))))
	}

	if len(snapshot.Accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts in session."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, phaseSummary(snapshot, s))
	for _, rt := range snapshot.Accounts {
		lines = append(lines, s.section.Render(renderAccount(rt, snapshot.Config, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sessionHeader(snapshot domain.SessionSnapshot, opts RenderOptions) string {
	state := "stopped"
	if snapshot.Active {
		state = "active"
	}

	parts := []string{
		state,
		fmt.Sprintf("accounts: %d", len(snapshot.Accounts)),
		fmt.Sprintf("players: %d", len(snapshot.Config.Players)),
	}
	if snapshot.Config.PlaceID > 0 {
		parts = append(parts, fmt.Sprintf("place: %d", snapshot.Config.PlaceID))
	}
	if snapshot.Active && !snapshot.StartedAt.IsZero() && !opts.Now.IsZero() {
		parts = append(parts, "up "+formatDuration(opts.Now.Sub(snapshot.StartedAt)))
	}
	if snapshot.SessionID != "" {
		parts = append(parts, "session "+shortID(snapshot.SessionID))
	}

	return strings.Join(parts, " · ")
}

func phaseSummary(snapshot domain.SessionSnapshot, s styles) string {
	counts := snapshot.PhaseCounts()
	parts := make([]string, 0, len(counts))
	for _, phase := range domain.Phases {
		if counts[phase] == 0 {
			continue
		}
		parts = append(parts, s.phase(phase).Render(fmt.Sprintf("%s %d", phase, counts[phase])))
	}

	return strings.Join(parts, s.meta.Render(" | "))
}

func renderAccount(rt domain.AccountRuntime, cfg domain.SessionConfig, opts RenderOptions, s styles) string {
	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.account.Render(accountTitle(rt.ID, opts.Names[rt.ID], rt.IsPlayer)),
		" ",
		s.phase(rt.Phase).Render("["+string(rt.Phase)+"]"),
	)

	parts := []string{title}
	if line := processLine(rt); line != "" {
		parts = append(parts, s.detail.Render(line))
	}
	if line := scheduleLine(rt, cfg, opts, s); line != "" {
		parts = append(parts, line)
	}
	if rt.RetryCount > 0 || rt.RateLimitStrikes > 0 {
		parts = append(parts, s.detail.Render(fmt.Sprintf("retries: %d  rate limits: %d", rt.RetryCount, rt.RateLimitStrikes)))
	}
	if rt.LastError != "" {
		parts = append(parts, s.warning.Render("error: "+truncate(rt.LastError, 120)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func processLine(rt domain.AccountRuntime) string {
	var parts []string
	if rt.PID > 0 {
		parts = append(parts, fmt.Sprintf("pid: %d", rt.PID))
	}
	if !rt.LastLaunchAt.IsZero() {
		parts = append(parts, "launched "+rt.LastLaunchAt.Format("15:04:05"))
	}
	return strings.Join(parts, "  ")
}

func scheduleLine(rt domain.AccountRuntime, cfg domain.SessionConfig, opts RenderOptions, s styles) string {
	switch {
	case rt.Disconnected:
		return s.meta.Render("relaunch: off (disconnected)")
	case rt.IsPlayer:
		return s.meta.Render("relaunch: off (player)")
	case rt.NextRestartAt == nil:
		return ""
	}

	label := "relaunch"
	window := cfg.RelaunchInterval
	switch rt.Phase {
	case domain.PhasePlayerGrace:
		label = "grace ends"
		window = cfg.PlayerGrace
	case domain.PhaseRetryBackoff:
		label = "retry"
		window = 0
	}

	due := *rt.NextRestartAt
	line := s.key.Render(label + ":")
	if window > 0 && !opts.Now.IsZero() {
		elapsed := 100 * (1 - due.Sub(opts.Now).Seconds()/window.Seconds())
		line = lipgloss.JoinHorizontal(lipgloss.Top, line, " ", renderProgressBar(elapsed, 24, s))
	}

	countdown := lipgloss.NewStyle().Foreground(countdownColor(due, opts.Now, window))
	return lipgloss.JoinHorizontal(lipgloss.Top, line, " ", countdown.Render(formatDue(due, opts.Now)))
}

func renderProgressBar(donePercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(donePercent) / 100.0))
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

func formatDue(due, now time.Time) string {
	if now.IsZero() {
		return "at " + due.Format(time.RFC3339)
	}
	if !due.After(now) {
		return "due now"
	}

	remaining := due.Sub(now)
	if remaining < 24*time.Hour && sameDay(due, now) {
		return fmt.Sprintf("in %s (%s)", formatDuration(remaining), due.Format("15:04"))
	}
	return fmt.Sprintf("in %s (%s)", formatDuration(remaining), due.Format("15:04 on 02 Jan"))
}

func sameDay(a, b time.Time) bool {
	yearA, monthA, dayA := a.Date()
	yearB, monthB, dayB := b.Date()
	return yearA == yearB && monthA == monthB && dayA == dayB
}

// formatDuration rounds to the largest two units, e.g. "1h05m" or "42s".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

func accountTitle(id domain.AccountID, name string, player bool) string {
	title := id.String()
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		title = fmt.Sprintf("%s (%s)", trimmed, id)
	}
	if player {
		title += " *player"
	}
	return title
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

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

	// ANSI 256 greyscale ramp from 240 (faded) to 255 (bright).
	colorCode := int(240.0 + 15.0*normalized)
	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}

// countdownColor brightens as the due time approaches.
func countdownColor(due, now time.Time, window time.Duration) lipgloss.Color {
	if now.IsZero() || !due.After(now) || window <= 0 {
		return lipgloss.Color("255")
	}

	inverted := window.Seconds() - due.Sub(now).Seconds()
	return interpolateColor(inverted, 0, window.Seconds())
}
