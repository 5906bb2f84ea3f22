package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/session"
)

const (
	choiceNone = ""
	choiceNew  = "new"
)

// MappingModel asks for a category for every alias the statement uses
// that no category lists yet.
type MappingModel struct {
	sess       *session.Session
	sessionSvc *session.Service

	aliases  []string
	choices  []string
	remember []bool
	form     *huh.Form
}

type mappingDoneMsg struct {
	err error
}

func NewMappingModel(sessionSvc *session.Service, sess *session.Session, cats []*category.Category) MappingModel {
	m := MappingModel{sess: sess, sessionSvc: sessionSvc}

	for _, mv := range sess.Snapshot().Mappings {
		if mv.Resolved() {
			continue
		}

		choice := choiceNone
		if mv.Suggestion != nil {
			choice = mv.Suggestion.Category.ID.String()
		}

		m.aliases = append(m.aliases, mv.Alias)
		m.choices = append(m.choices, choice)
	}

	m.remember = make([]bool, len(m.aliases))

	groups := make([]*huh.Group, 0, len(m.aliases))
	for i, alias := range m.aliases {
		opts := []huh.Option[string]{
			huh.NewOption("Leave unmapped", choiceNone),
			huh.NewOption(fmt.Sprintf("New category %q", alias), choiceNew),
		}
		for _, c := range cats {
			opts = append(opts, huh.NewOption(c.Name, c.ID.String()))
		}

		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Category for %q (%d of %d)", alias, i+1, len(m.aliases))).
				Options(opts...).
				Value(&m.choices[i]),
			huh.NewConfirm().
				Title("Remember this alias for future imports?").
				Affirmative("Yes").
				Negative("No").
				Value(&m.remember[i]),
		))
	}

	if len(groups) > 0 {
		m.form = huh.NewForm(groups...).WithWidth(60).WithShowHelp(false)
	}

	return m
}

// Pending reports whether any alias needs an answer.
func (m MappingModel) Pending() bool {
	return m.form != nil
}

func (m MappingModel) Init() tea.Cmd {
	if m.form == nil {
		return nil
	}

	return m.form.Init()
}

func (m MappingModel) Update(msg tea.Msg) (MappingModel, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.applyCmd()
}

func (m MappingModel) View() string {
	if m.form == nil {
		return "Every alias already has a category."
	}

	return m.form.View()
}

func (m MappingModel) applyCmd() tea.Cmd {
	aliases, choices, remember := m.aliases, m.choices, m.remember
	sess, svc := m.sess, m.sessionSvc

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		for i, alias := range aliases {
			switch choices[i] {
			case choiceNone:
				continue
			case choiceNew:
				if _, err := svc.CreateCategoryForAlias(ctx, sess, alias, alias, ""); err != nil {
					return mappingDoneMsg{err: fmt.Errorf("creating category for %q: %w", alias, err)}
				}
			default:
				id, err := uuid.Parse(choices[i])
				if err != nil {
					return mappingDoneMsg{err: err}
				}

				if err := sess.AssignCategory(alias, id, remember[i]); err != nil {
					return mappingDoneMsg{err: err}
				}
			}
		}

		return mappingDoneMsg{}
	}
}

func unmappedSummary(sess *session.Session) string {
	var unmapped []string

	for _, mv := range sess.Snapshot().Mappings {
		if !mv.Resolved() {
			unmapped = append(unmapped, mv.Alias)
		}
	}

	if len(unmapped) == 0 {
		return ""
	}

	return "Unmapped: " + strings.Join(unmapped, ", ")
}
