package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/container"
	"github.com/wippyai/ctf/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type typeRow struct {
	id   ctf.TypeID
	kind ctf.Kind
	name string
}

type browserModel struct {
	err      error
	file     string
	member   string
	parent   string
	c        *container.Container
	closeAll func()

	rows     []typeRow
	visible  []int
	filter   textinput.Model
	selected int
	detail   string
	state    browserState
}

type browserState int

const (
	stateBrowse browserState = iota
	stateDetail
)

type dictLoadedMsg struct {
	err      error
	c        *container.Container
	closeAll func()
	rows     []typeRow
}

func newBrowserModel(file, member, parent string) *browserModel {
	filter := textinput.New()
	filter.Placeholder = "filter types"
	filter.Prompt = "/ "
	filter.Width = 40
	return &browserModel{
		file:   file,
		member: member,
		parent: parent,
		filter: filter,
		state:  stateBrowse,
	}
}

func (m *browserModel) Init() tea.Cmd {
	return m.loadDictionary
}

func (m *browserModel) loadDictionary() tea.Msg {
	c, closeAll, err := openTarget(m.file, m.member, m.parent)
	if err != nil {
		return dictLoadedMsg{err: err}
	}

	var rows []typeRow
	err = c.EachType(func(id ctf.TypeID, kind ctf.Kind) bool {
		name, err := render.TypeName(c, id)
		if err != nil {
			name = fmt.Sprintf("<%v>", err)
		}
		rows = append(rows, typeRow{id: id, kind: kind, name: name})
		return true
	})
	if err != nil {
		closeAll()
		return dictLoadedMsg{err: err}
	}
	return dictLoadedMsg{c: c, closeAll: closeAll, rows: rows}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.closeAll != nil {
				m.closeAll()
			}
			return m, tea.Quit

		case "q":
			if m.state == stateBrowse && !m.filter.Focused() {
				if m.closeAll != nil {
					m.closeAll()
				}
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateBrowse && !m.filter.Focused() && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && !m.filter.Focused() && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateBrowse && !m.filter.Focused() {
				m.filter.Focus()
				return m, textinput.Blink
			}

		case "enter":
			switch m.state {
			case stateBrowse:
				if m.filter.Focused() {
					m.filter.Blur()
					break
				}
				if len(m.visible) > 0 {
					m.detail = m.describe(m.rows[m.visible[m.selected]])
					m.state = stateDetail
				}
			case stateDetail:
				m.state = stateBrowse
				m.detail = ""
			}

		case "esc":
			switch m.state {
			case stateBrowse:
				if m.filter.Focused() || m.filter.Value() != "" {
					m.filter.Blur()
					m.filter.SetValue("")
					m.applyFilter()
				}
			case stateDetail:
				m.state = stateBrowse
				m.detail = ""
			}
		}

	case dictLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.c = msg.c
		m.closeAll = msg.closeAll
		m.rows = msg.rows
		m.applyFilter()
	}

	if m.state == stateBrowse && m.filter.Focused() {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}
	return m, nil
}

func (m *browserModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, row := range m.rows {
		if needle == "" || strings.Contains(strings.ToLower(row.name), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = 0
	}
}

func (m *browserModel) describe(row typeRow) string {
	var b strings.Builder
	size, _ := m.c.SizeOf(row.id)
	align, _ := m.c.AlignOf(row.id)
	fmt.Fprintf(&b, "%s\n\n", nameStyle.Render(row.name))
	fmt.Fprintf(&b, "Id:    %d\n", row.id)
	fmt.Fprintf(&b, "Kind:  %s\n", row.kind)
	fmt.Fprintf(&b, "Size:  %d bytes, align %d\n", size, align)

	switch row.kind {
	case ctf.KindInteger, ctf.KindFloat, ctf.KindSlice:
		if enc, err := m.c.TypeEncoding(row.id); err == nil {
			fmt.Fprintf(&b, "Bits:  %d at offset %d, format %#x\n", enc.Bits, enc.Offset, enc.Format)
		}
	case ctf.KindStruct, ctf.KindUnion:
		members, err := m.c.Members(row.id)
		if err != nil {
			break
		}
		b.WriteString("\nMembers:\n")
		for _, mb := range members {
			decl, err := render.Declaration(m.c, mb.Type, mb.Name)
			if err != nil {
				decl = mb.Name
			}
			fmt.Fprintf(&b, "  %-40s @%d\n", decl, mb.Offset)
		}
	case ctf.KindEnum:
		enums, err := m.c.Enumerators(row.id)
		if err != nil {
			break
		}
		b.WriteString("\nEnumerators:\n")
		for _, e := range enums {
			fmt.Fprintf(&b, "  %s = %d\n", e.Name, e.Value)
		}
	}
	return b.String()
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.c == nil {
		return "Loading dictionary..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("CTF Browser"))
	b.WriteString(" ")
	b.WriteString(m.file)
	if m.member != "" {
		b.WriteString(" [" + m.member + "]")
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		b.WriteString(m.filter.View())
		fmt.Fprintf(&b, "   %d/%d types\n\n", len(m.visible), len(m.rows))

		const window = 20
		start := 0
		if m.selected >= window {
			start = m.selected - window + 1
		}
		for i := start; i < len(m.visible) && i < start+window; i++ {
			row := m.rows[m.visible[i]]
			line := fmt.Sprintf("%6d  %-9s %s", row.id, kindStyle.Render(row.kind.String()), row.name)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • / filter • q quit"))

	case stateDetail:
		b.WriteString(m.detail)
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter back • q quit"))
	}
	return b.String()
}

func runInteractive(file, member, parent string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}
	p := tea.NewProgram(newBrowserModel(file, member, parent), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
