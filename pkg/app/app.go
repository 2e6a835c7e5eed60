package app

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/stonkers/pkg/app/components"
	"github.com/kerbaras/stonkers/pkg/services"
	"github.com/kerbaras/stonkers/pkg/wheel"
)

type App struct {
	in  io.Reader
	out io.Writer
}

// NewApp renders on out, usually stderr so that results on stdout can be
// piped.
func NewApp(in io.Reader, out io.Writer) *App {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &App{in: in, out: out}
}

func (a *App) program(model tea.Model, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithInput(a.in), tea.WithOutput(a.out)}, opts...)
	return tea.NewProgram(model, opts...)
}

// RunWheelie runs the wheels of accountID showing their progress.
func (a *App) RunWheelie(ctx context.Context, wheeler *services.Wheeler, accountID string, configs []wheel.Config) (*wheel.AccountSummary, []*wheel.Wheel, error) {
	run := func(ctx context.Context) (*wheel.AccountSummary, []*wheel.Wheel, error) {
		return wheeler.Run(ctx, accountID, configs)
	}
	screen := NewWheelieScreen(ctx, run, wheeler.Progress())

	_, err := a.program(screen, tea.WithContext(ctx)).Run()
	screen.Wait()
	if err != nil {
		return nil, nil, err
	}
	return screen.Summary, screen.Wheels, screen.Err
}

// Confirm asks prompt and reports whether the user answered yes.
func (a *App) Confirm(prompt string) (bool, error) {
	confirm := components.NewConfirm(prompt)
	if _, err := a.program(confirm).Run(); err != nil {
		return false, err
	}
	return confirm.Yes, nil
}
