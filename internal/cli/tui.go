package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/visio2svg/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PageListModel - Interactive page selection
// =============================================================================

// PageListModel is the bubbletea model for choosing the pages to write.
type PageListModel struct {
	Pages  []pipeline.Page
	Cursor int
	Chosen map[int]bool
	Done   bool
	Height int
	Offset int
}

// NewPageListModel creates a page list model with nothing chosen.
func NewPageListModel(pages []pipeline.Page) PageListModel {
	return PageListModel{
		Pages:  pages,
		Chosen: make(map[int]bool),
		Height: 15,
	}
}

func (m PageListModel) Init() tea.Cmd {
	return nil
}

func (m PageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Pages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "x":
			if len(m.Pages) > 0 {
				m.Chosen[m.Cursor] = !m.Chosen[m.Cursor]
			}
		case "a":
			all := len(m.Selected()) < len(m.Pages)
			for i := range m.Pages {
				m.Chosen[i] = all
			}
		case "enter":
			// nothing marked means the page under the cursor
			if len(m.Selected()) == 0 && len(m.Pages) > 0 {
				m.Chosen[m.Cursor] = true
			}
			m.Done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// Selected returns the chosen pages in document order.
func (m PageListModel) Selected() []pipeline.Page {
	var out []pipeline.Page
	for i, p := range m.Pages {
		if m.Chosen[i] {
			out = append(out, p)
		}
	}
	return out
}

func (m PageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Pages"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  ⏎ write  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Pages))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := m.Pages[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := " "
		if m.Chosen[i] {
			mark = iconSuccess
		}
		images := "—"
		if p.Report.Images > 0 {
			images = fmt.Sprintf("%d/%d", p.Report.Replaced, p.Report.Images)
		}
		rows = append(rows, []string{cursor, mark, p.Name, images, strconv.Itoa(len(p.SVG))})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Page", "Images", "Bytes").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case m.Chosen[idx]:
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %d selected", m.Cursor+1, len(m.Pages), len(m.Selected()))))

	return b.String()
}

// runPagePicker lets the user choose pages. It returns nil if the user quits.
func runPagePicker(pages []pipeline.Page) ([]pipeline.Page, error) {
	final, err := tea.NewProgram(NewPageListModel(pages)).Run()
	if err != nil {
		return nil, fmt.Errorf("page picker: %w", err)
	}
	m := final.(PageListModel)
	if !m.Done {
		return nil, nil
	}
	return m.Selected(), nil
}
