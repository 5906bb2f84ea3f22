package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importrun"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
	"github.com/MrJamesThe3rd/tally/internal/review"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

var (
	ErrNotFound      = errors.New("import session not found")
	ErrRunInProgress = errors.New("an import run is in progress")
	ErrNoRun         = errors.New("no import run has finished yet")
)

// Stage is where an import session stands.
type Stage string

const (
	StageMapping   Stage = "mapping"
	StageImporting Stage = "importing"
	StageReview    Stage = "review"
	StageComplete  Stage = "complete"
)

// Session is one uploaded statement moving through mapping, import and
// review. Only one step owns the batch at a time: the mapping table is
// frozen while a run is active, and review opens once the run has ended.
type Session struct {
	ID        uuid.UUID
	Bank      importer.Bank
	FileName  string
	CreatedAt time.Time

	batch *statement.Batch
	table *reconcile.Table
	orch  *importrun.Orchestrator
	opts  []review.Option

	mu         sync.Mutex
	categories []*category.Category
	run        *importrun.Handle
	resolver   *review.Resolver
	creator    importrun.Creator
}

// MappingView is a mapping plus an optional suggestion for unresolved aliases.
type MappingView struct {
	reconcile.Mapping
	Suggestion *reconcile.Suggestion
}

// View is a point-in-time copy of a session.
type View struct {
	ID           uuid.UUID
	Bank         importer.Bank
	FileName     string
	CreatedAt    time.Time
	Stage        Stage
	Transactions []statement.Transaction
	Mappings     []MappingView
	Progress     importrun.Progress
}

func (s *Session) running() bool {
	// The terminal update is the run's last write to the batch, so review
	// may start as soon as it is published.
	return s.run != nil && !s.run.Progress().Terminal()
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running()
}

func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stage()
}

func (s *Session) stage() Stage {
	switch {
	case s.running():
		return StageImporting
	case s.run == nil:
		return StageMapping
	case s.batch.Count(statement.KindError) > 0:
		return StageReview
	case s.batch.Count(statement.KindIdle) > 0:
		return StageMapping
	default:
		return StageComplete
	}
}

// AssignCategory maps an alias while no run is active.
func (s *Session) AssignCategory(alias string, categoryID uuid.UUID, remember bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running() {
		return ErrRunInProgress
	}

	return s.table.Assign(alias, categoryID, remember)
}

func (s *Session) addCategory(c *category.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories = append(s.categories, c)
}

// StartImport begins a run over the transactions still Idle. A finished
// run may be followed by a fresh one; two runs never overlap.
func (s *Session) StartImport(ctx context.Context) (*importrun.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running() {
		return nil, ErrRunInProgress
	}

	s.run = s.orch.Start(ctx, s.batch, s.table)
	s.resolver = nil

	return s.run, nil
}

// Cancel requests cancellation of the active run and reports whether
// there was one.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running() {
		return false
	}

	s.run.Cancel()

	return true
}

// Run returns the latest run, if any.
func (s *Session) Run() (*importrun.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.run, s.run != nil
}

func (s *Session) Progress() importrun.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.progress()
}

func (s *Session) progress() importrun.Progress {
	if s.run == nil {
		return importrun.Progress{Status: importrun.StatusIdle, Total: s.batch.Count(statement.KindIdle)}
	}

	return s.run.Progress()
}

// ownsBatch keeps a resolver handed out earlier from touching the batch
// while a later run owns it.
func (s *Session) ownsBatch() error {
	if s.Running() {
		return ErrRunInProgress
	}

	return nil
}

// Resolver hands the batch to review. It is only available once the
// latest run has ended.
func (s *Session) Resolver() (*review.Resolver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running() {
		return nil, ErrRunInProgress
	}

	if s.run == nil {
		return nil, ErrNoRun
	}

	if s.resolver == nil {
		opts := append(slices.Clone(s.opts), review.WithGuard(s.ownsBatch))
		s.resolver = review.New(s.batch, s.creator, opts...)
	}

	return s.resolver, nil
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	mappings := s.table.Mappings()
	views := make([]MappingView, len(mappings))

	for i, m := range mappings {
		views[i] = MappingView{Mapping: m}
		if m.Resolved() {
			continue
		}

		if sug, ok := reconcile.Suggest(m.Alias, s.categories); ok {
			views[i].Suggestion = &sug
		}
	}

	return View{
		ID:           s.ID,
		Bank:         s.Bank,
		FileName:     s.FileName,
		CreatedAt:    s.CreatedAt,
		Stage:        s.stage(),
		Transactions: s.batch.Snapshot(),
		Mappings:     views,
		Progress:     s.progress(),
	}
}
