package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/stonkers/pkg/app/styles"
)

// Confirm asks a yes/no question. Anything but y answers no.
type Confirm struct {
	Prompt   string
	Answered bool
	Yes      bool
}

func NewConfirm(prompt string) *Confirm {
	return &Confirm{Prompt: prompt}
}

func (c *Confirm) Init() tea.Cmd {
	return nil
}

func (c *Confirm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}

	switch strings.ToLower(key.String()) {
	case "y":
		c.Yes = true
	case "n", "enter", "esc", "q", "ctrl+c":
		c.Yes = false
	default:
		return c, nil
	}
	c.Answered = true
	return c, tea.Quit
}

func (c *Confirm) View() string {
	answer := ""
	if c.Answered {
		answer = "no"
		if c.Yes {
			answer = "yes"
		}
		answer += "\n"
	}
	return c.Prompt + " " + styles.PromptStyle.Render("[y/N]") + " " + answer
}
