package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importrun"
	"github.com/MrJamesThe3rd/tally/internal/session"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

type importState int

const (
	importStateBankSelect importState = iota
	importStateFilePick
	importStateOpening
	importStateMapping
	importStateImporting
	importStateReview
	importStateResult
)

type ImportModel struct {
	CommonModel
	sessionSvc  *session.Service
	categorySvc *category.Service
	loc         *time.Location

	state       importState
	filePicker  filepicker.Model
	bankOptions []importer.BankOption
	bankCursor  int

	sess     *session.Session
	cats     []*category.Category
	mapping  MappingModel
	bar      progress.Model
	progress importrun.Progress
	updates  <-chan importrun.Progress
	review   ReviewModel

	status string
	err    error
}

func NewImportModel(sessionSvc *session.Service, categorySvc *category.Service, loc *time.Location) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		sessionSvc:  sessionSvc,
		categorySvc: categorySvc,
		loc:         loc,
		filePicker:  fp,
		bankOptions: importer.Banks(),
		bar:         progress.New(progress.WithDefaultGradient()),
	}
}

func (m ImportModel) Title() string { return "Import Statement" }

func (m ImportModel) ShortHelp() string {
	switch m.state {
	case importStateImporting:
		return "x: cancel import"
	case importStateReview:
		return m.review.ShortHelp()
	case importStateResult:
		if m.resumable() {
			return "r: resume | Esc: back"
		}
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return nil
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.bar.Width = min(msg.Width-8, 60)

	case tea.KeyMsg:
		if model, cmd, handled := m.handleKey(msg); handled {
			return model, cmd
		}

	case sessionOpenedMsg:
		if msg.err != nil {
			return m.fail(msg.err), nil
		}

		m.sess = msg.sess
		m.cats = msg.cats
		m.mapping = NewMappingModel(m.sessionSvc, m.sess, m.cats)

		if !m.mapping.Pending() {
			return m.startRun()
		}

		m.state = importStateMapping

		return m, m.mapping.Init()

	case mappingDoneMsg:
		if msg.err != nil {
			return m.fail(msg.err), nil
		}

		return m.startRun()

	case progressMsg:
		m.progress = importrun.Progress(msg)
		return m, waitForProgress(m.updates)

	case runFinishedMsg:
		return m.finishRun()

	case reviewFinishedMsg:
		m.state = importStateResult
		m.status = m.summary()

		return m, nil
	}

	switch m.state {
	case importStateFilePick:
		return m.updateFilePick(msg)
	case importStateMapping:
		var cmd tea.Cmd
		m.mapping, cmd = m.mapping.Update(msg)

		return m, cmd
	case importStateReview:
		var cmd tea.Cmd
		m.review, cmd = m.review.Update(msg)

		return m, cmd
	}

	return m, nil
}

// handleKey deals with keys that belong to the flow rather than to the
// embedded form of the current step.
func (m ImportModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch m.state {
	case importStateBankSelect:
		model, cmd := m.updateBankSelect(msg)
		return model, cmd, true
	case importStateFilePick:
		if msg.Type == tea.KeyEsc {
			m.state = importStateBankSelect
			return m, nil, true
		}
	case importStateMapping:
		if msg.Type == tea.KeyEsc {
			m.dismiss()
			return m, Back, true
		}
	case importStateImporting:
		if msg.String() == "x" && m.sess != nil {
			m.sess.Cancel()
			m.status = "Cancelling..."
		}

		return m, nil, true
	case importStateResult:
		switch msg.String() {
		case "r":
			if m.resumable() {
				model, cmd := m.startRun()
				return model, cmd, true
			}
		case "esc":
			m.dismiss()
			m = m.reset()

			return m, Back, true
		}

		return m, nil, true
	}

	return m, nil, false
}

func (m ImportModel) updateBankSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, Back
	case tea.KeyUp:
		if m.bankCursor > 0 {
			m.bankCursor--
		}
	case tea.KeyDown:
		if m.bankCursor < len(m.bankOptions)-1 {
			m.bankCursor++
		}
	case tea.KeyEnter:
		m.filePicker.AllowedTypes = m.bankOptions[m.bankCursor].Extensions
		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) updateFilePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateOpening
		m.status = fmt.Sprintf("Reading %s...", filepath.Base(path))

		return m, m.openCmd(m.bankOptions[m.bankCursor].Bank, path)
	}

	return m, cmd
}

func (m ImportModel) startRun() (tea.Model, tea.Cmd) {
	run, err := m.sess.StartImport(context.Background())
	if err != nil {
		return m.fail(err), nil
	}

	m.state = importStateImporting
	m.status = ""
	m.updates = run.Subscribe()

	return m, waitForProgress(m.updates)
}

func (m ImportModel) finishRun() (tea.Model, tea.Cmd) {
	m.progress = m.sess.Progress()

	resolver, err := m.sess.Resolver()
	if err != nil {
		return m.fail(err), nil
	}

	if resolver.Done() {
		m.state = importStateResult
		m.status = m.summary()

		return m, nil
	}

	m.state = importStateReview
	m.review = NewReviewModel(resolver, m.refreshCategories(), m.loc)

	return m, m.review.Init()
}

// refreshCategories picks up categories created while mapping.
func (m ImportModel) refreshCategories() []*category.Category {
	ctx, cancel := DbCtx()
	defer cancel()

	cats, err := m.categorySvc.All(ctx)
	if err != nil {
		return m.cats
	}

	return cats
}

func (m ImportModel) resumable() bool {
	return m.sess != nil && m.sess.Stage() == session.StageMapping && m.progress.Status == importrun.StatusCancelled
}

func (m ImportModel) summary() string {
	p := m.sess.Progress()
	view := m.sess.Snapshot()

	var imported, skipped int

	for _, tx := range view.Transactions {
		switch tx.Status.Kind() {
		case statement.KindDone:
			imported++
		case statement.KindSkipped:
			skipped++
		}
	}

	s := fmt.Sprintf("Imported %d of %d transactions", imported, len(view.Transactions))
	if skipped > 0 {
		s += fmt.Sprintf(", skipped %d", skipped)
	}

	if p.Status == importrun.StatusCancelled {
		s += " (cancelled)"
	}

	return s + "."
}

func (m ImportModel) fail(err error) ImportModel {
	m.state = importStateResult
	m.err = err
	m.status = fmt.Sprintf("Error: %v", err)

	return m
}

func (m *ImportModel) dismiss() {
	if m.sess == nil {
		return
	}

	_ = m.sessionSvc.Dismiss(m.sess.ID)
}

func (m ImportModel) reset() ImportModel {
	m.state = importStateBankSelect
	m.sess = nil
	m.cats = nil
	m.updates = nil
	m.progress = importrun.Progress{}
	m.err = nil
	m.status = ""

	return m
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateBankSelect:
		return m.viewBankSelect()
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select %s export:\n\n%s", m.bankOptions[m.bankCursor].Label, m.filePicker.View()),
		)
	case importStateOpening:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateMapping:
		return lipgloss.NewStyle().Padding(1).Render(m.mapping.View())
	case importStateImporting:
		return m.viewProgress()
	case importStateReview:
		return m.review.View()
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewBankSelect() string {
	s := "Select Bank:\n\n"

	for i, opt := range m.bankOptions {
		cursor := " "
		if i == m.bankCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, opt.Label)
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewProgress() string {
	p := m.progress

	percent := 0.0
	if p.Total > 0 {
		percent = float64(p.Imported+p.Failed) / float64(p.Total)
	}

	lines := fmt.Sprintf("Importing %s\n\n%s\n\n%d imported, %d failed, %d total",
		m.sess.FileName, m.bar.ViewAs(percent), p.Imported, p.Failed, p.Total)

	if unmapped := unmappedSummary(m.sess); unmapped != "" {
		lines += "\n" + faintStyle.Render(unmapped)
	}

	if m.status != "" {
		lines += "\n\n" + m.status
	}

	return lipgloss.NewStyle().Padding(2).Render(lines)
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(errorStyle.Render(m.status) + "\n\n(Esc to go back)")
	}

	hint := "(Esc to go back)"
	if m.resumable() {
		hint = "(r to resume the remaining transactions, Esc to go back)"
	}

	return style.Render(successStyle.Render(m.status) + "\n\n" + hint)
}

// Messages

type sessionOpenedMsg struct {
	sess *session.Session
	cats []*category.Category
	err  error
}

type progressMsg importrun.Progress

type runFinishedMsg struct{}

func (m ImportModel) openCmd(bank importer.Bank, path string) tea.Cmd {
	sessionSvc, categorySvc := m.sessionSvc, m.categorySvc

	return func() tea.Msg {
		info, err := os.Stat(path)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}

		f, err := os.Open(path)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := DbCtx()
		defer cancel()

		sess, err := sessionSvc.Open(ctx, bank, filepath.Base(path), info.Size(), f)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}

		cats, err := categorySvc.All(ctx)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}

		return sessionOpenedMsg{sess: sess, cats: cats}
	}
}

func waitForProgress(updates <-chan importrun.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-updates
		if !ok {
			return runFinishedMsg{}
		}

		return progressMsg(p)
	}
}
