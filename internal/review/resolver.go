package review

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/importrun"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/statement"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var (
	ErrNotReviewable    = errors.New("transaction is not awaiting review")
	ErrCategoryRequired = errors.New("a category is required")
	ErrInvalidFields    = errors.New("transaction fields are invalid")
)

// Decision is the operator's answer for one failed transaction. Nil
// fields keep the extracted value.
type Decision struct {
	CategoryID    uuid.UUID
	Description   *string
	Amount        *decimal.Decimal
	Timestamp     *time.Time
	RememberAlias bool
}

// Resolver walks the transactions a finished run left in error. It writes
// through the creator directly; the mapping table is not consulted.
type Resolver struct {
	batch   *statement.Batch
	creator importrun.Creator
	aliases importrun.AliasWriter
	guard   func() error
}

type Option func(*Resolver)

func WithAliasWriter(w importrun.AliasWriter) Option {
	return func(r *Resolver) { r.aliases = w }
}

// WithGuard makes Resolve and Skip fail with the guard's error whenever
// it returns one, e.g. while the batch is owned by a run.
func WithGuard(guard func() error) Option {
	return func(r *Resolver) { r.guard = guard }
}

func New(batch *statement.Batch, creator importrun.Creator, opts ...Option) *Resolver {
	r := &Resolver{batch: batch, creator: creator}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Pending returns the transactions still in error, in statement order.
func (r *Resolver) Pending() []statement.Transaction {
	var out []statement.Transaction

	for _, tx := range r.batch.Snapshot() {
		if tx.Status.Kind() == statement.KindError {
			out = append(out, tx)
		}
	}

	return out
}

func (r *Resolver) Next() (statement.Transaction, bool) {
	pending := r.Pending()
	if len(pending) == 0 {
		return statement.Transaction{}, false
	}

	return pending[0], true
}

func (r *Resolver) Remaining() int {
	return r.batch.Count(statement.KindError)
}

// Done reports whether nothing is left to review.
func (r *Resolver) Done() bool {
	return r.Remaining() == 0
}

// Resolve imports a failed transaction with the operator's category and
// edits. The transaction is claimed before anything is written, so
// concurrent calls for the same id create at most one record. On failure
// it stays in error, with the new reason when the write failed.
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID, d Decision) (statement.Transaction, error) {
	if err := r.checkGuard(); err != nil {
		return statement.Transaction{}, err
	}

	tx, err := r.reviewable(id)
	if err != nil {
		return statement.Transaction{}, err
	}

	if d.CategoryID == uuid.Nil {
		return tx, ErrCategoryRequired
	}

	if tx, err = r.claim(id, statement.Loading{}); err != nil {
		return tx, err
	}

	previous := tx.Status

	fields, fieldErrs := apply(tx, d)
	if len(fieldErrs) > 0 {
		if err := r.batch.SetFields(id, fields, fieldErrs); err != nil {
			return statement.Transaction{}, err
		}

		tx, err = r.settle(id, previous)
		if err != nil {
			return statement.Transaction{}, err
		}

		return tx, fmt.Errorf("%w: %s", ErrInvalidFields, importrun.FieldErrorsReason(tx))
	}

	if err := r.batch.SetFields(id, fields, nil); err != nil {
		return statement.Transaction{}, err
	}

	record, createErr := r.creator.Create(ctx, transaction.CreateParams{
		Description: fields.Description,
		CategoryID:  d.CategoryID,
		Amount:      fields.Amount,
		Timestamp:   fields.Timestamp,
	})
	if createErr != nil {
		tx, err = r.settle(id, statement.Failed{Reason: importrun.FailureReason(createErr)})
		if err != nil {
			return statement.Transaction{}, err
		}

		return tx, fmt.Errorf("importing transaction: %w", createErr)
	}

	if tx, err = r.settle(id, statement.Done{Record: record}); err != nil {
		return statement.Transaction{}, err
	}

	if d.RememberAlias {
		r.rememberAlias(ctx, d.CategoryID, fields.CategoryAlias)
	}

	return tx, nil
}

// Skip gives up on a failed transaction. Skipped transactions are never
// picked up again, neither by review nor by a later run.
func (r *Resolver) Skip(id uuid.UUID) (statement.Transaction, error) {
	if err := r.checkGuard(); err != nil {
		return statement.Transaction{}, err
	}

	if _, err := r.reviewable(id); err != nil {
		return statement.Transaction{}, err
	}

	return r.claim(id, statement.Skipped{})
}

func (r *Resolver) checkGuard() error {
	if r.guard == nil {
		return nil
	}

	return r.guard()
}

func (r *Resolver) reviewable(id uuid.UUID) (statement.Transaction, error) {
	tx, ok := r.batch.Get(id)
	if !ok {
		return statement.Transaction{}, statement.ErrUnknownTransaction
	}

	if tx.Status.Kind() != statement.KindError {
		return tx, fmt.Errorf("%w: status is %s", ErrNotReviewable, tx.Status.Kind())
	}

	return tx, nil
}

// claim moves the transaction out of error. For Loading it returns the
// transaction as it was just before, otherwise as it is now. Losing the
// race to another caller is reported as ErrNotReviewable.
func (r *Resolver) claim(id uuid.UUID, to statement.Status) (statement.Transaction, error) {
	before, err := r.batch.Transition(id, statement.KindError, to)
	if errors.Is(err, statement.ErrStatusChanged) {
		return before, fmt.Errorf("%w: %w", ErrNotReviewable, err)
	}

	if err != nil {
		return statement.Transaction{}, err
	}

	if _, isLoading := to.(statement.Loading); isLoading {
		return before, nil
	}

	tx, _ := r.batch.Get(id)

	return tx, nil
}

// settle ends a claim started by Resolve.
func (r *Resolver) settle(id uuid.UUID, s statement.Status) (statement.Transaction, error) {
	if _, err := r.batch.Transition(id, statement.KindLoading, s); err != nil {
		return statement.Transaction{}, fmt.Errorf("settling transaction: %w", err)
	}

	tx, _ := r.batch.Get(id)

	return tx, nil
}

func (r *Resolver) rememberAlias(ctx context.Context, categoryID uuid.UUID, alias string) {
	alias = strings.TrimSpace(alias)
	if r.aliases == nil || alias == "" {
		return
	}

	if _, err := r.aliases.AddAlias(ctx, categoryID, alias); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("alias", alias).Msg("could not remember alias")
	}
}

// apply overlays the decision on the extracted fields. An edited field
// clears its extraction error; the explicit category clears the alias one.
func apply(tx statement.Transaction, d Decision) (statement.Fields, map[statement.Field]string) {
	fields := tx.Fields
	errs := maps.Clone(tx.FieldErrors)
	if errs == nil {
		errs = map[statement.Field]string{}
	}

	delete(errs, statement.FieldCategory)

	if d.Description != nil {
		fields.Description = strings.TrimSpace(*d.Description)
		delete(errs, statement.FieldDescription)
	}

	if d.Amount != nil {
		fields.Amount = *d.Amount
		delete(errs, statement.FieldAmount)
	}

	if d.Timestamp != nil && !d.Timestamp.IsZero() {
		fields.Timestamp = *d.Timestamp
		delete(errs, statement.FieldTimestamp)
	}

	if fields.Description == "" {
		errs[statement.FieldDescription] = "description is required"
	}

	if fields.Timestamp.IsZero() {
		if _, ok := errs[statement.FieldTimestamp]; !ok {
			errs[statement.FieldTimestamp] = "timestamp is required"
		}
	}

	return fields, errs
}
