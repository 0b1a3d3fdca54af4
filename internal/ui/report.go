package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/billybjork/pixel-toaster/internal/session"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("248"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("109"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203"))

	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("114"))
)

// Braille-art slice of toast, printed after a successful run.
const toastArt = `
⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⢀⣄⠀⠀⠀⢀⡀⠀⠀⠀⣀⡀⠀⠀⠀⠀⠀⠀
⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⢰⣟⠁⠀⠀⣴⡏⠁⠀⠀⣾⡋⠁⠀⠀⠀⠀⠀⠀
⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠙⠿⠄⠀⠈⠻⠷⠀⠀⠈⢹⣷⠀⠀⠀⠀⠀⠀
⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⣀⣤⣤⣤⣤⣤⣤⣤⣤⣤⣀⠀⠠⣤⣀⠀⠀⠀⠀⠀
⠀⠀⠀⠀⠀⠀⠀⠀⠰⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⠀⣹⣿⡿⠀⠀⠀⠀
⠀⠀⠀⠀⠀⠀⠀⠀⠀⠙⠛⠛⠀⠛⠛⠛⠛⠉⠛⠛⠛⠀⠐⠛⠛⠀⠀⠀⠀⠀
⠀⠀⠀⠀⠀⠀⠀⣠⣾⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣷⣦⠀⠀⠀
⠀⠀⠀⠀⠀⠀⢸⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⡇⠀⠀
⠀⠀⠀⠀⠀⠀⢸⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⡇⠀⠀
⠀⠀⠀⠀⠀⠀⢸⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⠿⠛⠛⠿⣿⡇⠀⠀
⠀⠀⠀⠀⠀⠀⠸⠿⠿⠿⠿⠿⠿⠿⠿⠿⠿⠿⠿⠿⠿⠏⢠⣾⣿⣦⠘⠇⠀⠀
⠀⠀⢀⣤⡀⠀⢰⣶⣶⣶⣶⣶⣶⣶⣶⣶⣶⣶⣶⣶⣶⣆⠘⢿⣿⠟⢠⡆⠀⠀
⠀⠀⠘⠛⠛⠀⢸⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣿⣷⣤⣤⣶⣿⡇⠀⠀
⠀⠀⠀⠀⠀⠀⠀⠀⢠⣄⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⢠⣄⠀⠀⠀⠀
⠀⠀⠀⠀⠀⠀⠀⠀⠘⠛⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠀⠘⠛⠀⠀⠀⠀
`

// RenderProposedCommand formats a command card with an optional note
// underneath. Used for dry-run previews and the plain confirm prompt.
func RenderProposedCommand(command string, note string) string {
	body := commandStyle.Render(strings.TrimSpace(command))
	if note = strings.TrimSpace(note); note != "" {
		body += "\n" + noteStyle.Render(note)
	}
	return body
}

// RenderSuccess formats the closing message for a completed run.
func RenderSuccess(stdout string) string {
	var b strings.Builder
	b.WriteString(okStyle.Render("Done."))
	if tail := lastLines(stdout, 4); tail != "" {
		b.WriteString("\n")
		b.WriteString(noteStyle.Render(tail))
	}
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(toastArt))
	return b.String()
}

// RenderPreview formats the dry-run closing card: the command that
// would have run, with a reminder that nothing was executed.
func RenderPreview(command string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Preview only, nothing was run."))
	b.WriteString("\n\n")
	b.WriteString(commandStyle.Render(strings.TrimSpace(command)))
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("Re-run without --dry-run to execute."))
	return b.String()
}

// RenderExhausted formats the full attempt history after the retry
// ceiling is hit, so the failure is inspectable instead of opaque.
func RenderExhausted(attempts []session.Attempt) string {
	var b strings.Builder
	b.WriteString(failStyle.Render(fmt.Sprintf("Gave up after %d attempts.", len(attempts))))
	for _, a := range attempts {
		b.WriteString("\n\n")
		b.WriteString(titleStyle.Render(fmt.Sprintf("attempt %d", a.Ordinal)))
		b.WriteString("\n")
		if a.Command == "" {
			b.WriteString(noteStyle.Render("(no command was produced)"))
		} else {
			b.WriteString(commandStyle.Render(a.Command))
		}
		if stderr := lastLines(a.Stderr, 6); stderr != "" {
			b.WriteString("\n")
			b.WriteString(noteStyle.Render(stderr))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("Try rephrasing the request or naming the file explicitly."))
	return b.String()
}

// RenderToolMissing explains the one precondition the tool cannot work
// around and how to fix it.
func RenderToolMissing() string {
	var b strings.Builder
	b.WriteString(failStyle.Render("ffmpeg was not found on your PATH."))
	b.WriteString("\n\n")
	b.WriteString(noteStyle.Render("Install it and try again:"))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("  macOS:   brew install ffmpeg"))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("  Debian:  sudo apt install ffmpeg"))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("  Windows: winget install ffmpeg"))
	return b.String()
}

func lastLines(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.Join(lines, "\n")
}
