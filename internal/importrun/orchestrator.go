package importrun

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
	"github.com/MrJamesThe3rd/tally/internal/statement"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const (
	ReasonUnmapped = "category not mapped"
	ReasonGeneric  = "an error occurred while importing the transaction"
)

// Creator persists one transaction.
type Creator interface {
	Create(ctx context.Context, params transaction.CreateParams) (*transaction.Transaction, error)
}

// AliasWriter stores a confirmed alias on a category.
type AliasWriter interface {
	AddAlias(ctx context.Context, id uuid.UUID, alias string) (*category.Category, error)
}

// CancelToken is a cooperative cancellation flag, checked once per item.
// A call already in flight is allowed to finish.
type CancelToken struct {
	cancelled atomic.Bool
}

func (t *CancelToken) Cancel() { t.cancelled.Store(true) }

func (t *CancelToken) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

type Orchestrator struct {
	creator Creator
	aliases AliasWriter
}

type Option func(*Orchestrator)

// WithAliasWriter enables storing aliases the operator asked to remember.
func WithAliasWriter(w AliasWriter) Option {
	return func(o *Orchestrator) { o.aliases = w }
}

func New(creator Creator, opts ...Option) *Orchestrator {
	o := &Orchestrator{creator: creator}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run imports every Idle transaction of batch in order, one at a time.
// Items that are not Idle are left alone, so running a batch again only
// picks up what was never visited. A failing item is recorded on the item
// and never stops the loop; only token (or ctx) does, and the items not
// yet visited then stay Idle.
func (o *Orchestrator) Run(
	ctx context.Context,
	batch *statement.Batch,
	table *reconcile.Table,
	token *CancelToken,
	onProgress ProgressFunc,
) Progress {
	log := logger.FromContext(ctx)

	publish := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	o.rememberAliases(ctx, table)

	progress := Progress{Status: StatusRunning, Total: batch.Count(statement.KindIdle)}
	publish(progress)

	log.Info().Int("total", progress.Total).Msg("import run started")

	stopped := false

	for _, id := range batch.IDs() {
		if token.Cancelled() || ctx.Err() != nil {
			stopped = true
			break
		}

		tx, err := batch.Transition(id, statement.KindIdle, statement.Loading{})
		if err != nil {
			continue
		}

		status := o.importOne(ctx, tx, table)

		if err := batch.SetStatus(id, status); err != nil {
			log.Error().Err(err).Str("transaction_id", id.String()).Msg("recording transaction status")
			continue
		}

		switch s := status.(type) {
		case statement.Done:
			progress.Imported++
		case statement.Failed:
			progress.Failed++
			log.Warn().Str("transaction_id", id.String()).Str("reason", s.Reason).Msg("transaction not imported")
		}

		publish(progress)
	}

	if stopped || token.Cancelled() {
		progress.Status = StatusCancelled
	} else {
		progress.Status = StatusCompleted
	}

	publish(progress)

	log.Info().
		Str("status", string(progress.Status)).
		Int("imported", progress.Imported).
		Int("failed", progress.Failed).
		Int("total", progress.Total).
		Msg("import run finished")

	return progress
}

// importOne returns the status tx ends up in. Mapping comes first: an
// unmapped alias is reported as such even when fields are also broken.
func (o *Orchestrator) importOne(ctx context.Context, tx statement.Transaction, table *reconcile.Table) statement.Status {
	categoryID, ok := table.Lookup(tx.Fields.CategoryAlias)
	if !ok {
		return statement.Failed{Reason: ReasonUnmapped}
	}

	if tx.HasFieldErrors() {
		return statement.Failed{Reason: FieldErrorsReason(tx)}
	}

	record, err := o.creator.Create(ctx, transaction.CreateParams{
		Description: tx.Fields.Description,
		CategoryID:  categoryID,
		Amount:      tx.Fields.Amount,
		Timestamp:   tx.Fields.Timestamp,
	})
	if err != nil {
		return statement.Failed{Reason: FailureReason(err)}
	}

	return statement.Done{Record: record}
}

func (o *Orchestrator) rememberAliases(ctx context.Context, table *reconcile.Table) {
	if o.aliases == nil {
		return
	}

	log := logger.FromContext(ctx)

	for _, m := range table.Mappings() {
		if !m.Remember || m.CategoryID == nil {
			continue
		}

		if _, err := o.aliases.AddAlias(ctx, *m.CategoryID, m.Alias); err != nil {
			log.Warn().Err(err).Str("alias", m.Alias).Msg("could not remember alias")
		}
	}
}

// FailureReason turns a persistence error into the reason shown to the
// operator.
func FailureReason(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}

	return ReasonGeneric
}

// FieldErrorsReason lists the fields that failed to extract.
func FieldErrorsReason(tx statement.Transaction) string {
	fields := tx.SortedFieldErrors()

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, tx.FieldErrors[f]))
	}

	return "invalid fields: " + strings.Join(parts, "; ")
}
