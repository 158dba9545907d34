package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/clinviz/studyflow/pkg/timeline"
)

// =============================================================================
// TimelineListModel - Interactive timeline selection
// =============================================================================

// TimelineListModel is the bubbletea model for picking one timeline out of a
// multi-timeline study.
type TimelineListModel struct {
	Timelines []timeline.Timeline
	Cursor    int
	Selected  *timeline.Timeline
	Height    int
	Offset    int
}

// NewTimelineListModel creates a new timeline list model.
func NewTimelineListModel(timelines []timeline.Timeline) TimelineListModel {
	return TimelineListModel{
		Timelines: timelines,
		Height:    15,
	}
}

func (m TimelineListModel) Init() tea.Cmd {
	return nil
}

func (m TimelineListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Timelines)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = &m.Timelines[m.Cursor]
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

func (m TimelineListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Timeline"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Timelines) {
		end = len(m.Timelines)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		tl := &m.Timelines[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		entry := tl.EntryCondition
		if entry == "" {
			entry = "—"
		}

		rows = append(rows, []string{
			cursor,
			tl.DisplayName(),
			fmt.Sprintf("%d", len(tl.Nodes)),
			fmt.Sprintf("%d", len(tl.Timings)),
			entry,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Timeline", "Nodes", "Timings", "Entry Condition").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Timelines))))

	return b.String()
}

// selectTimeline runs the interactive picker and returns the chosen timeline.
// With a single timeline there is nothing to pick.
func selectTimeline(timelines []timeline.Timeline) (*timeline.Timeline, error) {
	if len(timelines) == 1 {
		return &timelines[0], nil
	}

	model := NewTimelineListModel(timelines)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("timeline selection: %w", err)
	}

	result, ok := final.(TimelineListModel)
	if !ok || result.Selected == nil {
		return nil, fmt.Errorf("no timeline selected")
	}
	return result.Selected, nil
}
