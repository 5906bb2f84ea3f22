package view

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/paging"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type txState int

const (
	txStateTimeframe txState = iota
	txStateList
	txStateEditing
)

// txItem wraps a transaction to implement list.Item.
type txItem struct {
	tx *transaction.Transaction
}

func (i txItem) Title() string {
	return fmt.Sprintf("%s  %10s  %s", FormatDate(i.tx.Timestamp), FormatAmount(i.tx.Amount), i.tx.Description)
}

func (i txItem) Description() string {
	return i.tx.CategoryName
}

func (i txItem) FilterValue() string {
	return i.tx.Description + " " + i.tx.CategoryName
}

type TransactionsModel struct {
	CommonModel
	txService       *transaction.Service
	categoryService *category.Service

	state           txState
	timeframePicker TimeframePicker
	list            list.Model
	form            *huh.Form
	txs             []*transaction.Transaction
	cats            []*category.Category
	selectedTx      *transaction.Transaction

	startDate time.Time
	endDate   time.Time
	allTime   bool
	loading   bool
	status    string

	in *txInput
}

// txInput holds the edit form bindings behind a pointer shared by every
// copy of the model.
type txInput struct {
	desc     string
	category string
	amount   string
}

func NewTransactionsModel(txSvc *transaction.Service, catSvc *category.Service, loc *time.Location) TransactionsModel {
	l := list.New([]list.Item{}, txItemDelegate{}, 0, 0)
	l.Title = "Transactions"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(true)

	return TransactionsModel{
		txService:       txSvc,
		categoryService: catSvc,
		timeframePicker: NewTimeframePicker(TimeframeThisWeek, loc),
		list:            l,
	}
}

func (m TransactionsModel) Title() string { return "Browse Transactions" }

func (m TransactionsModel) ShortHelp() string {
	switch m.state {
	case txStateTimeframe:
		return "Esc: back | Enter: select"
	case txStateList:
		return "Esc: back | Enter: edit | /: filter"
	case txStateEditing:
		return "Esc: cancel | Enter/Tab: navigate form"
	}

	return ""
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.timeframePicker.Init()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.startDate = msg.Start
		m.endDate = msg.End
		m.allTime = msg.All
		m.loading = true
		m.state = txStateList

		return m, m.loadTxsCmd()

	case loadTxsMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.txs = msg.txs
		m.cats = msg.cats
		m.refreshListItems()

		m.status = ""
		if len(msg.txs) == 0 {
			m.status = "No transactions found."
		}

		return m, nil

	case saveTxResultMsg:
		m.state = txStateList
		m.form = nil

		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
			return m, nil
		}

		m.status = "Saved."

		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)

		return m, nil
	}

	switch m.state {
	case txStateTimeframe:
		return m.updateTimeframe(msg)
	case txStateList:
		return m.updateList(msg)
	case txStateEditing:
		return m.updateEditing(msg)
	}

	return m, nil
}

func (m TransactionsModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			if m.timeframePicker.IsSelecting() {
				return m, Back
			}

			m.timeframePicker.Reset()

			return m, m.timeframePicker.Init()
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func (m TransactionsModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			if m.list.FilterState() == list.Filtering {
				break // let the list close the filter
			}

			m.state = txStateTimeframe
			m.timeframePicker.Reset()

			return m, m.timeframePicker.Init()
		case tea.KeyEnter:
			if m.list.FilterState() == list.Filtering {
				break
			}

			return m.startEditing()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m TransactionsModel) startEditing() (tea.Model, tea.Cmd) {
	selected, ok := m.list.SelectedItem().(txItem)
	if !ok {
		return m, nil
	}

	m.selectedTx = selected.tx
	m.in = &txInput{
		desc:     selected.tx.Description,
		category: selected.tx.CategoryID.String(),
		amount:   selected.tx.Amount.StringFixed(2),
	}

	options := make([]huh.Option[string], 0, len(m.cats))
	for _, c := range m.cats {
		options = append(options, huh.NewOption(c.Name, c.ID.String()))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("description").
				Title("Description").
				Value(&m.in.desc).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("description cannot be empty")
					}

					return nil
				}),

			huh.NewSelect[string]().
				Key("category").
				Title("Category").
				Options(options...).
				Value(&m.in.category),

			huh.NewInput().
				Key("amount").
				Title("Amount").
				Value(&m.in.amount).
				Validate(func(s string) error {
					_, err := decimal.NewFromString(strings.TrimSpace(s))
					return err
				}),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = txStateEditing

	return m, m.form.Init()
}

func (m TransactionsModel) updateEditing(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = txStateList
			m.form = nil

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

	return m, m.saveTxCmd()
}

func (m TransactionsModel) View() string {
	switch m.state {
	case txStateTimeframe:
		return lipgloss.NewStyle().Padding(1).Render(m.timeframePicker.View())

	case txStateList:
		if m.loading {
			return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
		}

		statusLine := ""
		if m.status != "" {
			statusLine = faintStyle.Render(m.status) + "\n"
		}

		return lipgloss.NewStyle().Padding(1).Render(statusLine + m.list.View())

	case txStateEditing:
		if m.form == nil {
			return ""
		}

		return lipgloss.NewStyle().Padding(1).Render(
			m.txInfoView() + "\n" + m.form.View(),
		)
	}

	return ""
}

func (m TransactionsModel) txInfoView() string {
	if m.selectedTx == nil {
		return ""
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(fmt.Sprintf(
			"Timestamp: %s  |  Amount: %s\nImported: %s",
			FormatTimestamp(m.selectedTx.Timestamp),
			FormatAmount(m.selectedTx.Amount),
			FormatTimestamp(m.selectedTx.CreatedAt),
		))
}

func (m *TransactionsModel) refreshListItems() {
	items := make([]list.Item, len(m.txs))
	for i, tx := range m.txs {
		items[i] = txItem{tx: tx}
	}

	m.list.SetItems(items)
}

// Messages

type loadTxsMsg struct {
	txs  []*transaction.Transaction
	cats []*category.Category
	err  error
}

func (m TransactionsModel) loadTxsCmd() tea.Cmd {
	txSvc, catSvc := m.txService, m.categoryService
	filter := transaction.ListFilter{
		Query: paging.Query{Take: paging.MaxTake, OrderBy: "timestamp", Desc: true},
	}

	if !m.allTime {
		start, end := m.startDate, m.endDate
		filter.StartDate = &start
		filter.EndDate = &end
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var txs []*transaction.Transaction

		for page := 1; ; page++ {
			filter.Query.Page = page

			res, err := txSvc.List(ctx, filter)
			if err != nil {
				return loadTxsMsg{err: err}
			}

			txs = append(txs, res.Items...)
			if len(res.Items) == 0 || len(txs) >= res.Total {
				break
			}
		}

		cats, err := catSvc.All(ctx)
		if err != nil {
			return loadTxsMsg{err: err}
		}

		return loadTxsMsg{txs: txs, cats: cats}
	}
}

type saveTxResultMsg struct {
	err error
}

func (m TransactionsModel) saveTxCmd() tea.Cmd {
	id := m.selectedTx.ID
	desc := strings.TrimSpace(m.in.desc)
	categoryID := m.in.category
	amount := strings.TrimSpace(m.in.amount)
	txSvc := m.txService

	return func() tea.Msg {
		catID, err := uuid.Parse(categoryID)
		if err != nil {
			return saveTxResultMsg{err: fmt.Errorf("invalid category: %w", err)}
		}

		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return saveTxResultMsg{err: fmt.Errorf("invalid amount: %w", err)}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		_, err = txSvc.Update(ctx, id, transaction.UpdateParams{
			Description: &desc,
			CategoryID:  &catID,
			Amount:      &amt,
		})

		return saveTxResultMsg{err: err}
	}
}

// txItemDelegate renders items in the list.
type txItemDelegate struct{}

func (d txItemDelegate) Height() int                             { return 2 }
func (d txItemDelegate) Spacing() int                            { return 0 }
func (d txItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d txItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(txItem)
	if !ok {
		return
	}

	title := i.Title()
	if index == m.Index() {
		title = activeStyle.Render("> " + title)
	}

	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintf(w, "    %s\n", faintStyle.Render(i.Description()))
}
