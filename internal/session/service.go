package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importrun"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
	"github.com/MrJamesThe3rd/tally/internal/review"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

// Importer parses an uploaded statement.
type Importer interface {
	Import(bank importer.Bank, r io.Reader) ([]*statement.Transaction, error)
}

// Categories is the slice of the category service sessions need.
type Categories interface {
	All(ctx context.Context) ([]*category.Category, error)
	Create(ctx context.Context, params category.CreateParams) (*category.Category, error)
	AddAlias(ctx context.Context, id uuid.UUID, alias string) (*category.Category, error)
}

type Service struct {
	importer   Importer
	categories Categories
	creator    importrun.Creator
	store      *Store
	maxSize    int64
	now        func() time.Time
}

// NewService wires the pipeline. maxSize, when positive, caps uploads
// below each bank's own limit.
func NewService(imp Importer, cats Categories, creator importrun.Creator, store *Store, maxSize int64) *Service {
	return &Service{
		importer:   imp,
		categories: cats,
		creator:    creator,
		store:      store,
		maxSize:    maxSize,
		now:        time.Now,
	}
}

// Open validates and parses a statement, reconciles its aliases against
// the current categories and registers the resulting session.
func (s *Service) Open(ctx context.Context, bank importer.Bank, fileName string, size int64, r io.Reader) (*Session, error) {
	if err := importer.ValidateFile(bank, fileName, size, s.maxSize); err != nil {
		return nil, err
	}

	txs, err := s.importer.Import(bank, io.LimitReader(r, size))
	if err != nil {
		return nil, err
	}

	cats, err := s.categories.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	batch := statement.NewBatch(txs)
	mappings := reconcile.Reconcile(batch.Snapshot(), cats)

	sess := &Session{
		ID:         uuid.New(),
		Bank:       bank,
		FileName:   fileName,
		CreatedAt:  s.now(),
		batch:      batch,
		table:      reconcile.NewTable(mappings),
		orch:       importrun.New(s.creator, importrun.WithAliasWriter(s.categories)),
		opts:       []review.Option{review.WithAliasWriter(s.categories)},
		categories: cats,
		creator:    s.creator,
	}
	s.store.Put(sess)

	log := logger.FromContext(ctx)
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("bank", string(bank)).
		Int("transactions", batch.Len()).
		Int("aliases", len(mappings)).
		Msg("statement opened")

	return sess, nil
}

func (s *Service) Get(id uuid.UUID) (*Session, error) {
	return s.store.Get(id)
}

func (s *Service) List() []*Session {
	return s.store.List()
}

// Dismiss discards a session. A session with an active run must be
// cancelled first.
func (s *Service) Dismiss(id uuid.UUID) error {
	return s.store.Delete(id)
}

// CreateCategoryForAlias creates a category that already carries alias and
// maps the alias to it.
func (s *Service) CreateCategoryForAlias(ctx context.Context, sess *Session, alias, name, color string) (*category.Category, error) {
	alias = strings.TrimSpace(alias)
	if sess.Running() {
		return nil, ErrRunInProgress
	}

	c, err := s.categories.Create(ctx, category.CreateParams{Name: name, Color: color, Aliases: []string{alias}})
	if err != nil {
		return nil, err
	}

	sess.addCategory(c)

	if err := sess.AssignCategory(alias, c.ID, false); err != nil {
		return nil, err
	}

	return c, nil
}

// ExpireIdle drops sessions older than ttl on every tick until ctx ends.
// Sessions with an active run are kept.
func (s *Service) ExpireIdle(ctx context.Context, ttl, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	log := logger.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.store.Expire(s.now().Add(-ttl)); n > 0 {
				log.Info().Int("sessions", n).Msg("expired import sessions")
			}
		}
	}
}
