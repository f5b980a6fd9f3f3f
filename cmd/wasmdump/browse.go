package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wasm-binfmt/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	ownerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))
)

type browseState int

const (
	stateSections browseState = iota
	stateEntries
)

type browseModel struct {
	err      error
	module   *wasm.Module
	load     func() (*wasm.Module, error)
	filename string
	sections table.Model
	entries  viewport.Model
	state    browseState
	width    int
	height   int
}

type loadedMsg struct {
	err    error
	module *wasm.Module
}

func newBrowseModel(filename string, load func() (*wasm.Module, error)) *browseModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 4},
			{Title: "Section", Width: 12},
			{Title: "Offset", Width: 10},
			{Title: "Size", Width: 10},
			{Title: "Entries", Width: 8},
			{Title: "Owner", Width: 18},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4"))
	t.SetStyles(styles)

	return &browseModel{
		filename: filename,
		load:     load,
		sections: t,
		entries:  viewport.New(80, 12),
		state:    stateSections,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return func() tea.Msg {
		mod, err := m.load()
		return loadedMsg{module: mod, err: err}
	}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if h := msg.Height - 6; h > 3 {
			m.sections.SetHeight(h)
			m.entries.Height = h
		}
		if msg.Width > 4 {
			m.entries.Width = msg.Width - 2
		}
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.module = msg.module
		m.sections.SetRows(sectionRows(msg.module))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "enter":
			if m.state == stateSections && m.module != nil && len(m.module.Layout) > 0 {
				h := m.module.Layout[m.sections.Cursor()]
				rows := describeSection(m.module, h)
				if len(rows) == 0 {
					rows = []string{"(no entries)"}
				}
				m.entries.SetContent(strings.Join(rows, "\n"))
				m.entries.GotoTop()
				m.state = stateEntries
				return m, nil
			}

		case "esc", "backspace":
			if m.state == stateEntries {
				m.state = stateSections
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case stateSections:
		m.sections, cmd = m.sections.Update(msg)
	case stateEntries:
		m.entries, cmd = m.entries.Update(msg)
	}
	return m, cmd
}

func (m *browseModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.module == nil {
		return "Decoding module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wasmdump"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString(" ")
	b.WriteString(ownerStyle.Render(strings.Join(m.module.Features().Names(), " ")))
	b.WriteString("\n\n")

	switch m.state {
	case stateSections:
		b.WriteString(paneStyle.Render(m.sections.View()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter entries • q quit"))
	case stateEntries:
		h := m.module.Layout[m.sections.Cursor()]
		fmt.Fprintf(&b, "%s section at %s\n", h.Name, h.Span)
		b.WriteString(paneStyle.Render(m.entries.View()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • esc back • q quit"))
	}
	return b.String()
}

func sectionRows(m *wasm.Module) []table.Row {
	rows := make([]table.Row, 0, len(m.Layout))
	for _, h := range m.Layout {
		owner := "-"
		if h.ID != wasm.SectionCustom {
			owner = m.Features().SectionOwner(h.ID)
		}
		rows = append(rows, table.Row{
			strconv.Itoa(int(h.ID)),
			h.Name,
			fmt.Sprintf("0x%x", h.Offset),
			strconv.Itoa(h.Span.Len()),
			strconv.Itoa(entryCount(m, h.ID)),
			owner,
		})
	}
	return rows
}

func newBrowseCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "browse FILE",
		Short: "Browse module sections interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tty, ok := c.out.(*os.File)
			if !ok || !term.IsTerminal(int(tty.Fd())) {
				return fmt.Errorf("browse needs a terminal, use the sections command instead")
			}
			path := args[0]
			model := newBrowseModel(path, func() (*wasm.Module, error) {
				return c.load(path)
			})
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(tty))
			_, err := p.Run()
			return err
		},
	}
}
