package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/review"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

const timestampLayout = "2006-01-02 15:04"

type reviewState int

const (
	reviewStateShow reviewState = iota
	reviewStateEdit
	reviewStateSaving
)

// ReviewModel walks the transactions a run could not import, one at a
// time, and lets the operator fix or skip each.
type ReviewModel struct {
	resolver *review.Resolver
	cats     []*category.Category
	loc      *time.Location

	state   reviewState
	current statement.Transaction
	form    *huh.Form
	status  string
	done    int

	in *reviewInput
}

// reviewInput holds the form bindings. It lives behind a pointer so the
// copies bubbletea makes of the model all see what the form writes.
type reviewInput struct {
	category  string
	desc      string
	amount    string
	timestamp string
	remember  bool
}

type reviewFinishedMsg struct{}

type resolveResultMsg struct {
	tx  statement.Transaction
	err error
}

func NewReviewModel(resolver *review.Resolver, cats []*category.Category, loc *time.Location) ReviewModel {
	m := ReviewModel{resolver: resolver, cats: cats, loc: loc}
	m.advance()

	return m
}

func (m ReviewModel) Title() string { return "Review Failed Transactions" }

func (m ReviewModel) ShortHelp() string {
	if m.state == reviewStateEdit {
		return "Esc: cancel edit | Enter/Tab: navigate form"
	}

	return "Enter: fix and import | s: skip | Esc: stop reviewing"
}

func (m ReviewModel) Init() tea.Cmd {
	if m.resolver.Done() {
		return func() tea.Msg { return reviewFinishedMsg{} }
	}

	return nil
}

func (m *ReviewModel) advance() {
	next, ok := m.resolver.Next()
	if !ok {
		m.current = statement.Transaction{}
		return
	}

	m.current = next
	m.state = reviewStateShow
}

func (m ReviewModel) Update(msg tea.Msg) (ReviewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case resolveResultMsg:
		m.state = reviewStateShow
		if msg.err != nil {
			if msg.tx.ID != uuid.Nil {
				m.current = msg.tx
			}

			m.status = errorStyle.Render(fmt.Sprintf("Not imported: %v", msg.err))

			return m, nil
		}

		m.done++
		m.status = successStyle.Render(fmt.Sprintf("Imported %s", msg.tx.Fields.Description))

		return m.next()

	case tea.KeyMsg:
		switch m.state {
		case reviewStateShow:
			return m.updateShow(msg)
		case reviewStateEdit:
			if msg.Type == tea.KeyEsc {
				m.state = reviewStateShow
				m.form = nil

				return m, nil
			}
		case reviewStateSaving:
			return m, nil
		}
	}

	if m.state != reviewStateEdit || m.form == nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = reviewStateSaving

	return m, m.resolveCmd()
}

func (m ReviewModel) updateShow(msg tea.KeyMsg) (ReviewModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return reviewFinishedMsg{} }
	case "s":
		if _, err := m.resolver.Skip(m.current.ID); err != nil {
			m.status = errorStyle.Render(err.Error())
			return m, nil
		}

		m.status = faintStyle.Render(fmt.Sprintf("Skipped %s", m.current.Fields.Description))

		return m.next()
	case "enter":
		return m.startEdit()
	}

	return m, nil
}

func (m ReviewModel) next() (ReviewModel, tea.Cmd) {
	m.advance()
	if m.resolver.Done() {
		return m, func() tea.Msg { return reviewFinishedMsg{} }
	}

	return m, nil
}

func (m ReviewModel) startEdit() (ReviewModel, tea.Cmd) {
	f := m.current.Fields

	m.in = &reviewInput{desc: f.Description}

	if _, bad := m.current.FieldErrors[statement.FieldAmount]; !bad {
		m.in.amount = f.Amount.String()
	}

	if !f.Timestamp.IsZero() {
		m.in.timestamp = f.Timestamp.In(m.loc).Format(timestampLayout)
	}

	opts := make([]huh.Option[string], 0, len(m.cats))
	for _, c := range m.cats {
		opts = append(opts, huh.NewOption(c.Name, c.ID.String()))
		if c.HasAlias(f.CategoryAlias) {
			m.in.category = c.ID.String()
		}
	}

	fields := []huh.Field{
		huh.NewSelect[string]().
			Title("Category").
			Options(opts...).
			Value(&m.in.category).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("pick a category")
				}
				return nil
			}),
		huh.NewInput().
			Title("Description").
			Value(&m.in.desc).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("description cannot be empty")
				}
				return nil
			}),
		huh.NewInput().
			Title("Amount").
			Placeholder("-12.50").
			Value(&m.in.amount).
			Validate(func(s string) error {
				_, err := decimal.NewFromString(strings.TrimSpace(s))
				return err
			}),
		huh.NewInput().
			Title("Timestamp").
			Placeholder(timestampLayout).
			Value(&m.in.timestamp).
			Validate(func(s string) error {
				_, err := time.ParseInLocation(timestampLayout, strings.TrimSpace(s), m.loc)
				return err
			}),
	}

	if strings.TrimSpace(f.CategoryAlias) != "" {
		fields = append(fields, huh.NewConfirm().
			Title(fmt.Sprintf("Remember %q for this category?", f.CategoryAlias)).
			Affirmative("Yes").
			Negative("No").
			Value(&m.in.remember))
	}

	m.form = huh.NewForm(huh.NewGroup(fields...)).WithWidth(60).WithShowHelp(false)
	m.state = reviewStateEdit

	return m, m.form.Init()
}

func (m ReviewModel) View() string {
	if m.current.ID == uuid.Nil {
		return lipgloss.NewStyle().Padding(2).Render("Nothing left to review.")
	}

	f := m.current.Fields
	reason := ""
	if failed, ok := m.current.Status.(statement.Failed); ok {
		reason = failed.Reason
	}

	info := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(fmt.Sprintf(
			"Description: %s\nAlias:       %s\nAmount:      %s\nTimestamp:   %s\n\n%s",
			f.Description,
			f.CategoryAlias,
			FormatAmount(f.Amount),
			FormatTimestamp(f.Timestamp),
			errorStyle.Render(reason),
		))

	header := fmt.Sprintf("Reviewing (%d left, %d imported)", m.resolver.Remaining(), m.done)

	body := info
	if m.state == reviewStateEdit && m.form != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, info, "", m.form.View())
	}

	if m.state == reviewStateSaving {
		body += "\n\nImporting..."
	}

	if m.status != "" {
		body = m.status + "\n\n" + body
	}

	return lipgloss.NewStyle().Padding(1).Render(header + "\n\n" + body)
}

func (m ReviewModel) resolveCmd() tea.Cmd {
	current := m.current
	resolver := m.resolver
	catID, catErr := uuid.Parse(m.in.category)
	desc := strings.TrimSpace(m.in.desc)
	amount, amountErr := decimal.NewFromString(strings.TrimSpace(m.in.amount))
	ts, tsErr := time.ParseInLocation(timestampLayout, strings.TrimSpace(m.in.timestamp), m.loc)
	remember := m.in.remember

	return func() tea.Msg {
		if err := errors.Join(catErr, amountErr, tsErr); err != nil {
			return resolveResultMsg{tx: current, err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		tx, err := resolver.Resolve(ctx, current.ID, review.Decision{
			CategoryID:    catID,
			Description:   &desc,
			Amount:        &amount,
			Timestamp:     &ts,
			RememberAlias: remember,
		})

		return resolveResultMsg{tx: tx, err: err}
	}
}
