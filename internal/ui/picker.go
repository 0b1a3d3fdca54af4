package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rivo/tview"
)

// ProviderOption is one configured reasoning service offered by the
// setup picker.
type ProviderOption struct {
	Name  string
	Model string
	Kind  string
}

func (o ProviderOption) label(current string) string {
	label := fmt.Sprintf("%s (%s, %s)", o.Name, o.Kind, o.Model)
	if o.Name == current {
		label = "[current] " + label
	}
	return label
}

// SelectProvider lets the user pick which configured service generates
// commands. The second return reports whether any interactive backend
// handled the pick; false means the caller should keep the current one.
func SelectProvider(backend string, current string, options []ProviderOption) (string, bool, error) {
	if len(options) < 2 {
		return "", false, nil
	}

	var firstErr error
	for _, candidate := range backendCandidates(backend) {
		var (
			selected string
			used     bool
			err      error
		)
		switch candidate {
		case BackendBubbleTea:
			selected, used, err = selectProviderWithBubbleTea(current, options)
		case BackendHuh:
			selected, used, err = selectProviderWithHuh(current, options)
		case BackendTView:
			selected, used, err = selectProviderWithTView(current, options)
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
		if used {
			return selected, true, nil
		}
	}
	if firstErr != nil {
		return "", false, firstErr
	}
	return "", false, nil
}

func selectProviderWithHuh(current string, options []ProviderOption) (string, bool, error) {
	huhOptions := make([]huh.Option[string], 0, len(options))
	for _, option := range options {
		huhOptions = append(huhOptions, huh.NewOption(option.label(current), option.Name))
	}

	choice := huhOptions[0].Value
	prompt := huh.NewSelect[string]().
		Title("Choose a command generator").
		Options(huhOptions...).
		Height(huhSelectHeight(len(huhOptions))).
		Value(&choice).
		WithTheme(huh.ThemeCharm())

	err := prompt.Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", true, nil
		}
		return "", false, err
	}
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return "", true, nil
	}
	return choice, true, nil
}

type providerItem struct {
	label string
	name  string
}

func (i providerItem) Title() string       { return i.label }
func (i providerItem) Description() string { return "" }
func (i providerItem) FilterValue() string { return i.label }

type providerPickerModel struct {
	list      list.Model
	selection string
	cancelled bool
	options   int
}

func (m providerPickerModel) Init() tea.Cmd { return nil }

func (m providerPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch k := msg.(type) {
	case tea.WindowSizeMsg:
		width, height := bubblePickerSize(k.Width, k.Height, m.options)
		m.list.SetSize(width, height)
		return m, nil
	case tea.KeyMsg:
		switch k.String() {
		case "q", "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(providerItem); ok {
				m.selection = item.name
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m providerPickerModel) View() string {
	return m.list.View()
}

func selectProviderWithBubbleTea(current string, options []ProviderOption) (string, bool, error) {
	items := make([]list.Item, 0, len(options))
	for _, option := range options {
		items = append(items, providerItem{label: option.label(current), name: option.Name})
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	initialWidth, initialHeight := bubblePickerSize(80, 24, len(items))
	picker := list.New(items, delegate, initialWidth, initialHeight)
	picker.Title = "Choose a command generator"
	picker.SetShowHelp(false)
	picker.SetFilteringEnabled(true)

	model := providerPickerModel{list: picker, options: len(items)}
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return "", false, err
	}
	out, ok := final.(providerPickerModel)
	if !ok || out.cancelled {
		return "", true, nil
	}
	selection := strings.TrimSpace(out.selection)
	if selection == "" {
		return "", true, nil
	}
	return selection, true, nil
}

func selectProviderWithTView(current string, options []ProviderOption) (string, bool, error) {
	app := tview.NewApplication()
	listView := tview.NewList()
	listView.SetBorder(true)
	listView.SetTitle("Choose a command generator")
	listView.ShowSecondaryText(false)

	selected := ""
	used := false
	for _, option := range options {
		name := option.Name
		listView.AddItem(option.label(current), "", 0, func() {
			selected = name
			used = true
			app.Stop()
		})
	}
	listView.SetDoneFunc(func() {
		app.Stop()
	})

	if err := app.SetRoot(listView, true).SetFocus(listView).Run(); err != nil {
		return "", false, err
	}
	if !used {
		return "", true, nil
	}
	return selected, true, nil
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func bubblePickerSize(termWidth, termHeight, optionCount int) (int, int) {
	if termWidth <= 0 {
		termWidth = 80
	}
	if termHeight <= 0 {
		termHeight = 24
	}
	if optionCount < 1 {
		optionCount = 1
	}

	maxWidth := termWidth
	minWidth := 32
	if maxWidth < minWidth {
		minWidth = maxWidth
	}
	width := clampInt(termWidth-4, minWidth, maxWidth)

	visibleItems := clampInt(optionCount, 3, 12)
	desiredHeight := visibleItems + 6

	maxHeight := termHeight - 2
	if maxHeight <= 0 {
		maxHeight = 1
	}
	minHeight := 8
	if maxHeight < minHeight {
		minHeight = maxHeight
	}
	height := clampInt(desiredHeight, minHeight, maxHeight)
	return width, height
}

func huhSelectHeight(optionCount int) int {
	if optionCount < 1 {
		optionCount = 1
	}
	return clampInt(optionCount+1, 4, 10)
}
