package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/category"
	catStore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/session"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txStore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

const logFile = "tally-tui.log"

type model struct {
	currentView View
	size        tea.WindowSizeMsg

	importView       view.ImportModel
	transactionsView view.TransactionsModel
	categoriesView   view.CategoriesModel

	newImport       func() view.ImportModel
	newTransactions func() view.TransactionsModel
	newCategories   func() view.CategoriesModel
}

type View int

const (
	ViewMenu         View = 0
	ViewImport       View = 1
	ViewTransactions View = 2
	ViewCategories   View = 3
)

func initialModel(ctx context.Context, log zerolog.Logger) (model, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return model{}, nil, fmt.Errorf("loading config: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return model{}, nil, fmt.Errorf("invalid import timezone: %w", err)
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return model{}, nil, fmt.Errorf("connecting to database: %w", err)
	}

	txSvc := transaction.NewService(txStore.New(db))
	catSvc := category.NewService(catStore.New(db))
	sessionSvc := session.NewService(
		importer.NewService(loc),
		catSvc,
		txSvc,
		session.NewStore(),
		cfg.Import.MaxFileSize,
	)

	log.Info().Str("timezone", loc.String()).Msg("tui started")

	m := model{
		currentView:     ViewMenu,
		newImport:       func() view.ImportModel { return view.NewImportModel(sessionSvc, catSvc, loc) },
		newTransactions: func() view.TransactionsModel { return view.NewTransactionsModel(txSvc, catSvc, loc) },
		newCategories:   func() view.CategoriesModel { return view.NewCategoriesModel(catSvc) },
	}

	return m, func() { _ = db.Close() }, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.size = msg
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewImport
				m.importView = m.newImport()

				return m, tea.Batch(m.importView.Init(), m.resize)
			case "2":
				m.currentView = ViewTransactions
				m.transactionsView = m.newTransactions()

				return m, tea.Batch(m.transactionsView.Init(), m.resize)
			case "3":
				m.currentView = ViewCategories
				m.categoriesView = m.newCategories()

				return m, tea.Batch(m.categoriesView.Init(), m.resize)
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	case ViewCategories:
		var newModel tea.Model
		newModel, cmd = m.categoriesView.Update(msg)
		m.categoriesView = newModel.(view.CategoriesModel)
	}

	return m, cmd
}

// resize replays the last window size to a freshly opened screen.
func (m model) resize() tea.Msg {
	return m.size
}

func (m model) View() string {
	var current view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Tally TUI\n\n" +
				"1. Import Statement\n" +
				"2. Browse Transactions\n" +
				"3. Categories\n\n" +
				"q. Quit",
		)
	case ViewImport:
		current = m.importView
	case ViewTransactions:
		current = m.transactionsView
	case ViewCategories:
		current = m.categoriesView
	default:
		return "Unknown View"
	}

	help := lipgloss.NewStyle().Faint(true).PaddingLeft(2).Render(current.ShortHelp())

	return current.View() + "\n" + help
}

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// The terminal belongs to the program; log lines go to a file.
	f, err := tea.LogToFile(logFile, "tui")
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	log := logger.NewWithWriter(f).Level(zerolog.InfoLevel)
	ctx := logger.WithContext(context.Background(), log)

	m, closeDB, err := initialModel(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start")
		return err
	}
	defer closeDB()

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Error().Err(err).Msg("failed to run TUI")
		return err
	}

	return nil
}
