package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// WelcomeDecision is what the first-run screen collects: optionally a
// different model name, and whether future runs should skip the
// per-command confirmation.
type WelcomeDecision struct {
	SetModel bool
	Model    string
	AutoMode bool
}

type welcomeMode int

const (
	welcomeModeMenu welcomeMode = iota
	welcomeModeEditModel
)

type welcomeModel struct {
	summaryLines []string
	modelInput   textinput.Model
	mode         welcomeMode
	decision     WelcomeDecision
	done         bool
	frameIndex   int
	pulseIndex   int
	messageIndex int
}

type welcomeTickMsg struct{}

// Welcome shows the first-run screen: a summary of the detected
// environment and a couple of optional tweaks. The second return is
// false when no interactive backend could render it.
func Welcome(backend string, summary string, currentModel string) (WelcomeDecision, bool, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return WelcomeDecision{}, false, nil
	}

	var firstErr error
	for _, candidate := range backendCandidates(backend) {
		if candidate != BackendBubbleTea {
			continue
		}
		decision, err := welcomeWithBubbleTea(summary, currentModel)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return decision, true, nil
	}
	if firstErr != nil {
		return WelcomeDecision{}, false, firstErr
	}
	return WelcomeDecision{}, false, nil
}

func welcomeWithBubbleTea(summary string, currentModel string) (WelcomeDecision, error) {
	model := newWelcomeModel(summary, currentModel)
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return WelcomeDecision{}, err
	}
	out, ok := final.(welcomeModel)
	if !ok {
		return WelcomeDecision{}, nil
	}
	return out.decision, nil
}

func newWelcomeModel(summary string, currentModel string) welcomeModel {
	modelInput := textinput.New()
	modelInput.Placeholder = "model name"
	modelInput.CharLimit = 120
	modelInput.Width = 48
	modelInput.SetValue(strings.TrimSpace(currentModel))

	return welcomeModel{
		summaryLines: summarizeWelcomeLines(summary, 10),
		modelInput:   modelInput,
		mode:         welcomeModeMenu,
	}
}

func (m welcomeModel) Init() tea.Cmd {
	return welcomeTickCmd()
}

func (m welcomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch k := msg.(type) {
	case welcomeTickMsg:
		if m.done {
			return m, nil
		}
		m.frameIndex = (m.frameIndex + 1) % len(welcomeMarkFrames)
		m.pulseIndex = (m.pulseIndex + 1) % len(welcomePulseDots)
		if m.frameIndex == 0 {
			m.messageIndex = (m.messageIndex + 1) % len(welcomePulseMessages)
		}
		return m, welcomeTickCmd()
	case tea.KeyMsg:
		if m.mode == welcomeModeEditModel {
			return m.updateEditMode(k)
		}
		return m.updateMenuMode(k)
	}
	if m.mode == welcomeModeEditModel {
		var cmd tea.Cmd
		m.modelInput, cmd = m.modelInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m welcomeModel) updateMenuMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "enter", "y":
		m.done = true
		return m, tea.Quit
	case "a":
		m.done = true
		m.decision.AutoMode = true
		return m, tea.Quit
	case "m":
		m.mode = welcomeModeEditModel
		m.modelInput.Focus()
		return m, textinput.Blink
	case "esc", "q", "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m welcomeModel) updateEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "enter":
		m.done = true
		m.decision.SetModel = true
		m.decision.Model = strings.TrimSpace(m.modelInput.Value())
		return m, tea.Quit
	case "esc":
		m.mode = welcomeModeMenu
		m.modelInput.Blur()
		return m, nil
	case "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.modelInput, cmd = m.modelInput.Update(msg)
	return m, cmd
}

func (m welcomeModel) View() string {
	if m.mode == welcomeModeEditModel {
		return m.editView()
	}
	return m.menuView()
}

func (m welcomeModel) menuView() string {
	lines := []string{
		titleStyle.Render("pixel toaster"),
		"",
		welcomeAnimatedStatusLine(m.frameIndex, m.messageIndex, m.pulseIndex),
		"",
		noteStyle.Render("detected environment"),
	}
	for _, summaryLine := range m.summaryLines {
		lines = append(lines, noteStyle.Render(summaryLine))
	}
	lines = append(lines, "")
	lines = append(lines, hintStyle.Render("[enter] looks good, continue"))
	lines = append(lines, hintStyle.Render("[m] change the model"))
	lines = append(lines, hintStyle.Render("[a] run commands without asking"))
	lines = append(lines, hintStyle.Render("[esc] continue without changes"))
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (m welcomeModel) editView() string {
	lines := []string{
		titleStyle.Render("pixel toaster: model"),
		"",
		welcomeAnimatedStatusLine(m.frameIndex, m.messageIndex, m.pulseIndex),
		"",
		noteStyle.Render("Name the model that should write your commands."),
		"",
		m.modelInput.View(),
		"",
		hintStyle.Render("[enter] save  [esc] back"),
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func summarizeWelcomeLines(summary string, maxLines int) []string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil
	}
	if maxLines <= 0 {
		maxLines = 10
	}
	raw := strings.Split(summary, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) <= maxLines {
		return lines
	}
	remaining := len(lines) - maxLines
	out := append([]string{}, lines[:maxLines]...)
	out = append(out, fmt.Sprintf("- +%d more", remaining))
	return out
}

func welcomeTickCmd() tea.Cmd {
	return tea.Tick(700*time.Millisecond, func(time.Time) tea.Msg {
		return welcomeTickMsg{}
	})
}

func welcomeAnimatedStatusLine(frameIndex int, messageIndex int, pulseIndex int) string {
	frame := welcomeMarkFrames[frameIndex%len(welcomeMarkFrames)]
	message := welcomePulseMessages[messageIndex%len(welcomePulseMessages)]
	dots := welcomePulseDots[pulseIndex%len(welcomePulseDots)]
	return noteStyle.Render(
		fmt.Sprintf("%s %s%s", titleStyle.Render(frame), message, dots),
	)
}

var (
	welcomeMarkFrames = []string{
		"[    ]",
		"[=   ]",
		"[==  ]",
		"[=== ]",
		"[====]",
	}

	welcomePulseMessages = []string{
		"warming up the toaster",
		"checking the ffmpeg wiring",
		"lining up the output slots",
		"setting the crumb tray",
	}

	welcomePulseDots = []string{
		".",
		"..",
		"...",
	}
)
