package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
)

type categoriesState int

const (
	categoriesStateBrowse categoriesState = iota
	categoriesStateEdit
)

// CategoriesModel lists categories with their aliases and edits them in
// a side panel.
type CategoriesModel struct {
	CommonModel
	categoryService *category.Service

	state   categoriesState
	table   table.Model
	cats    []*category.Category
	form    *huh.Form
	editing uuid.UUID // Nil while creating

	loading bool
	err     error
	status  string

	in *categoryInput
}

// categoryInput holds the form bindings behind a pointer shared by every
// copy of the model.
type categoryInput struct {
	name    string
	color   string
	aliases string
}

func NewCategoriesModel(catSvc *category.Service) CategoriesModel {
	columns := []table.Column{
		{Title: "Name", Width: 20},
		{Title: "Color", Width: 10},
		{Title: "Aliases", Width: 50},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return CategoriesModel{
		categoryService: catSvc,
		table:           t,
		loading:         true,
	}
}

func (m CategoriesModel) Title() string { return "Categories" }

func (m CategoriesModel) ShortHelp() string {
	if m.state == categoriesStateEdit {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | e: edit | n: new | r: refresh"
}

func (m CategoriesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m CategoriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadCategoriesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.cats = msg.cats
		m.refreshTable()

		return m, nil

	case categorySaveMsg:
		m.status = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
		}

		m.state = categoriesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 10)

		return m, nil
	}

	switch m.state {
	case categoriesStateBrowse:
		return m.updateBrowse(msg)
	case categoriesStateEdit:
		return m.updateEdit(msg)
	}

	return m, nil
}

func (m CategoriesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "e":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.cats) {
				return m, nil
			}

			return m.enterEdit(m.cats[idx])
		case "n":
			return m.enterEdit(nil)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

// enterEdit opens the form for c, or for a new category when c is nil.
func (m CategoriesModel) enterEdit(c *category.Category) (tea.Model, tea.Cmd) {
	m.editing = uuid.Nil
	m.in = &categoryInput{}

	if c != nil {
		m.editing = c.ID
		m.in = &categoryInput{name: c.Name, color: c.Color, aliases: strings.Join(c.Aliases, ", ")}
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Name").
				Value(&m.in.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name cannot be empty")
					}

					return nil
				}),

			huh.NewInput().
				Key("color").
				Title("Color").
				Placeholder("#4caf50").
				Value(&m.in.color),

			huh.NewText().
				Key("aliases").
				Title("Aliases (comma separated)").
				Value(&m.in.aliases),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = categoriesStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m CategoriesModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = categoriesStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m CategoriesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading categories...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	content := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	if m.state == categoriesStateEdit && m.form != nil {
		heading := "New Category"
		if m.editing != uuid.Nil {
			heading = "Edit Category"
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(heading + "\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *CategoriesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.cats))
	for _, c := range m.cats {
		rows = append(rows, table.Row{c.Name, c.Color, strings.Join(c.Aliases, ", ")})
	}

	m.table.SetRows(rows)
}

// splitAliases reads the comma or newline separated alias field.
func splitAliases(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
}

// Messages

type loadCategoriesMsg struct {
	cats []*category.Category
	err  error
}

func (m CategoriesModel) loadCmd() tea.Cmd {
	catSvc := m.categoryService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cats, err := catSvc.All(ctx)

		return loadCategoriesMsg{cats: cats, err: err}
	}
}

type categorySaveMsg struct {
	err error
}

func (m CategoriesModel) saveCmd() tea.Cmd {
	id := m.editing
	name, color := m.in.name, m.in.color
	aliases := splitAliases(m.in.aliases)
	catSvc := m.categoryService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if id == uuid.Nil {
			_, err := catSvc.Create(ctx, category.CreateParams{Name: name, Color: color, Aliases: aliases})
			return categorySaveMsg{err: err}
		}

		_, err := catSvc.Update(ctx, id, category.UpdateParams{Name: &name, Color: &color, Aliases: &aliases})

		return categorySaveMsg{err: err}
	}
}
