package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/kerbaras/stonkers/pkg/app/styles"
	"github.com/kerbaras/stonkers/pkg/services"
)

// ProgressTracker keeps the latest progress of every ticker, in the order
// they were first seen.
type ProgressTracker struct {
	tickers  []string
	progress map[string]services.Progress
	bar      progress.Model
	width    int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		progress: make(map[string]services.Progress),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth(width))),
		width:    width,
	}
}

func barWidth(width int) int {
	return max(10, min(40, width-30))
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
	p.bar.Width = barWidth(width)
}

func (p *ProgressTracker) Update(update services.Progress) {
	prev, seen := p.progress[update.Ticker]
	if !seen {
		p.tickers = append(p.tickers, update.Ticker)
	}
	// Updates can arrive out of order from concurrent steps.
	if seen && update.Status == services.StatusRunning && update.Step < prev.Step {
		return
	}
	if seen && isFinal(prev.Status) {
		return
	}
	p.progress[update.Ticker] = update
}

func isFinal(status string) bool {
	return status == services.StatusDone || status == services.StatusError
}

func (p *ProgressTracker) Clear() {
	p.tickers = nil
	p.progress = make(map[string]services.Progress)
}

func (p *ProgressTracker) HasActive() bool {
	for _, t := range p.tickers {
		if !isFinal(p.progress[t].Status) {
			return true
		}
	}
	return false
}

func (p *ProgressTracker) Len() int {
	return len(p.tickers)
}

func (p *ProgressTracker) Get(ticker string) (services.Progress, bool) {
	state, ok := p.progress[ticker]
	return state, ok
}

func (p *ProgressTracker) View() string {
	if len(p.tickers) == 0 {
		return ""
	}

	var b strings.Builder
	for _, ticker := range p.tickers {
		state := p.progress[ticker]

		b.WriteString(fmt.Sprintf("%-6s ", ticker))
		b.WriteString(p.bar.ViewAs(fraction(state)))
		b.WriteString(" ")
		b.WriteString(styles.StatusStyle(state.Status).Render(state.Status))
		if state.Err != nil {
			b.WriteString(" ")
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", state.Err)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func fraction(p services.Progress) float64 {
	if p.Status == services.StatusDone {
		return 1
	}
	if p.Steps == 0 {
		return 0
	}
	return min(1, float64(p.Step)/float64(p.Steps))
}
