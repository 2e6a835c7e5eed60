package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/stonkers/pkg/app/components"
	"github.com/kerbaras/stonkers/pkg/app/styles"
	"github.com/kerbaras/stonkers/pkg/services"
	"github.com/kerbaras/stonkers/pkg/wheel"
)

// RunFunc runs the wheels, typically Wheeler.Run bound to an account.
type RunFunc func(ctx context.Context) (*wheel.AccountSummary, []*wheel.Wheel, error)

type wheelsDoneMsg struct {
	summary *wheel.AccountSummary
	wheels  []*wheel.Wheel
	err     error
}

// WheelieScreen shows a spinner while the account loads and a progress bar
// per ticker while the wheels run.
type WheelieScreen struct {
	ctx      context.Context
	cancel   context.CancelFunc
	run      RunFunc
	updates  <-chan services.Progress
	spinner  spinner.Model
	tracker  *components.ProgressTracker
	finished bool

	runMu   sync.Mutex
	running bool
	stopped bool
	runDone chan struct{}

	Summary *wheel.AccountSummary
	Wheels  []*wheel.Wheel
	Err     error
}

func NewWheelieScreen(ctx context.Context, run RunFunc, updates <-chan services.Progress) *WheelieScreen {
	ctx, cancel := context.WithCancel(ctx)
	return &WheelieScreen{
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		updates: updates,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.SpinnerStyle)),
		tracker: components.NewProgressTracker(80),
		runDone: make(chan struct{}),
	}
}

func (s *WheelieScreen) Init() tea.Cmd {
	return tea.Batch(
		s.spinner.Tick,
		s.runWheels,
		s.listenForProgress,
	)
}

func (s *WheelieScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.tracker.SetWidth(msg.Width)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			s.cancel()
			s.Err = context.Canceled
			s.finished = true
			return s, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case services.Progress:
		s.tracker.Update(msg)
		return s, s.listenForProgress

	case wheelsDoneMsg:
		s.Summary, s.Wheels, s.Err = msg.summary, msg.wheels, msg.err
		s.finished = true
		s.cancel()
		return s, tea.Quit
	}

	return s, nil
}

func (s *WheelieScreen) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Wheelie"))
	b.WriteString("\n")

	if s.tracker.Len() == 0 {
		b.WriteString(s.spinner.View())
		b.WriteString(" Loading account and positions...\n")
		return b.String()
	}

	b.WriteString(s.tracker.View())
	if !s.finished {
		b.WriteString(s.spinner.View())
		b.WriteString(" Running wheels...")
		b.WriteString(styles.HelpStyle.Render("q: cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *WheelieScreen) runWheels() tea.Msg {
	s.runMu.Lock()
	if s.stopped || s.running {
		s.runMu.Unlock()
		return wheelsDoneMsg{err: context.Canceled}
	}
	s.running = true
	s.runMu.Unlock()
	defer close(s.runDone)

	summary, wheels, err := s.run(s.ctx)
	return wheelsDoneMsg{summary: summary, wheels: wheels, err: err}
}

// Wait cancels the run if it is still going and blocks until it returned. A
// run that never started will not start afterwards.
func (s *WheelieScreen) Wait() {
	s.cancel()

	s.runMu.Lock()
	s.stopped = true
	running := s.running
	s.runMu.Unlock()

	if running {
		<-s.runDone
	}
}

func (s *WheelieScreen) listenForProgress() tea.Msg {
	progress, ok := <-s.updates
	if !ok {
		return nil
	}
	return progress
}

// RenderWheels writes the messages of every wheel under its ticker.
func RenderWheels(w io.Writer, wheels []*wheel.Wheel) error {
	for _, wh := range wheels {
		var b strings.Builder
		b.WriteString(styles.TickerStyle.Render(wh.Symbol()))
		b.WriteString("\n")
		for _, m := range wh.Messages {
			b.WriteString("  ")
			b.WriteString(styles.MessageStyle(m.Kind).Render(m.Text))
			b.WriteString("\n")
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
