package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rivo/tview"
)

// ConfirmExecution asks whether the proposed command may run. The note
// is a short caption shown under the command, for example a batch hint.
// The second return reports whether any interactive backend handled the
// prompt; when it is false the caller should fall back to PlainConfirm.
func ConfirmExecution(backend string, command string, note string) (bool, bool, error) {
	var firstErr error
	for _, candidate := range backendCandidates(backend) {
		var (
			approved bool
			err      error
		)
		switch candidate {
		case BackendBubbleTea:
			approved, err = confirmWithBubbleTea(command, note)
		case BackendHuh:
			approved, err = confirmWithHuh(command, note)
		case BackendTView:
			approved, err = confirmWithTView(command, note)
		case BackendPlain:
			continue
		default:
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return approved, true, nil
	}
	if firstErr != nil {
		return false, false, firstErr
	}
	return false, false, nil
}

// PlainConfirm is the non-TTY fallback: a y/N line prompt on the given
// streams. Anything other than an explicit yes declines.
func PlainConfirm(in io.Reader, out io.Writer, command string, note string) (bool, error) {
	fmt.Fprintf(out, "\n%s\n", RenderProposedCommand(command, note))
	fmt.Fprint(out, "Run this command? [y/N] ")

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type bubbleConfirmModel struct {
	command  string
	note     string
	approved bool
	done     bool
}

func (m bubbleConfirmModel) Init() tea.Cmd { return nil }

func (m bubbleConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch k := msg.(type) {
	case tea.KeyMsg:
		switch strings.ToLower(k.String()) {
		case "y":
			m.approved = true
			m.done = true
			return m, tea.Quit
		case "n", "esc", "ctrl+c", "enter":
			m.approved = false
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m bubbleConfirmModel) View() string {
	body := fmt.Sprintf("Run this command?\n\n%s", commandStyle.Render(m.command))
	if m.note != "" {
		body += "\n\n" + noteStyle.Render(m.note)
	}
	body += "\n\n" + hintStyle.Render("[y] run  [n] cancel")
	return cardStyle.Render(body)
}

func confirmWithBubbleTea(command string, note string) (bool, error) {
	model := bubbleConfirmModel{command: strings.TrimSpace(command), note: strings.TrimSpace(note)}
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	out, ok := final.(bubbleConfirmModel)
	if !ok {
		return false, nil
	}
	if !out.done {
		return false, nil
	}
	return out.approved, nil
}

func confirmWithHuh(command string, note string) (bool, error) {
	approved := false
	description := strings.TrimSpace(command)
	if note = strings.TrimSpace(note); note != "" {
		description += "\n" + note
	}
	prompt := huh.NewConfirm().
		Title("Run this command?").
		Description(description).
		Affirmative("Run").
		Negative("Cancel").
		Value(&approved).
		WithTheme(huh.ThemeCharm())
	err := prompt.Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return approved, nil
}

func confirmWithTView(command string, note string) (bool, error) {
	app := tview.NewApplication()
	approved := false
	done := false

	text := fmt.Sprintf("Run this command?\n\n%s", strings.TrimSpace(command))
	if note = strings.TrimSpace(note); note != "" {
		text += "\n\n" + note
	}
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Run", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			done = true
			approved = strings.EqualFold(strings.TrimSpace(label), "run")
			app.Stop()
		})

	if err := app.SetRoot(modal, true).Run(); err != nil {
		return false, err
	}
	if !done {
		return false, nil
	}
	return approved, nil
}
