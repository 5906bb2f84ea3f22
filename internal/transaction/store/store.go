package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// foreignKeyViolation is the Postgres SQLSTATE for a missing category.
const foreignKeyViolation = "23503"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	t.id, t.description, t.category_id, c.name, t.amount, t.timestamp, t.created_at, t.updated_at
`

var orderColumns = map[string]string{
	"description": "t.description",
	"amount":      "t.amount",
	"timestamp":   "t.timestamp",
	"created_at":  "t.created_at",
	"category":    "c.name",
}

// scanTransaction reads a row in selectTransactionColumns order, plus any extra destinations.
func scanTransaction(s scanner, extra ...any) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	dest := []any{
		&tx.ID, &tx.Description, &tx.CategoryID, &tx.CategoryName,
		&tx.Amount, &tx.Timestamp, &tx.CreatedAt, &tx.UpdatedAt,
	}

	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	return &tx, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: unknown category", transaction.ErrInvalidParams)
	}

	return err
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		WITH inserted AS (
			INSERT INTO transactions (description, category_id, amount, timestamp, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id, category_id, created_at, updated_at
		)
		SELECT i.id, c.name, i.created_at, i.updated_at
		FROM inserted i
		JOIN categories c ON c.id = i.category_id
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.Description,
		tx.CategoryID,
		tx.Amount,
		tx.Timestamp,
	).Scan(&tx.ID, &tx.CategoryName, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", mapWriteError(err))
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

// ListTransactions returns one page of matches and the total number of matches.
func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, int, error) {
	query := `SELECT ` + selectTransactionColumns + `, COUNT(*) OVER ()
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND t.category_id = $%d", argIdx)

		args = append(args, *filter.CategoryID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.timestamp >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.timestamp <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(" AND t.description ILIKE '%%' || $%d || '%%'", argIdx)

		args = append(args, filter.Search)
		argIdx++
	}

	q := filter.Query.Normalize()
	query += fmt.Sprintf(" ORDER BY %s %s, t.id ASC LIMIT $%d OFFSET $%d",
		q.Column(orderColumns, "t.timestamp"), q.Direction(), argIdx, argIdx+1)
	args = append(args, q.Take, q.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var (
		txs   []*transaction.Transaction
		total int
	)

	for rows.Next() {
		tx, err := scanTransaction(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, total, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions t
		SET description = $1, category_id = $2, amount = $3, timestamp = $4, updated_at = NOW()
		WHERE t.id = $5
		RETURNING (SELECT c.name FROM categories c WHERE c.id = t.category_id), t.updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.Description,
		tx.CategoryID,
		tx.Amount,
		tx.Timestamp,
		tx.ID,
	).Scan(&tx.CategoryName, &tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotFound
		}

		return fmt.Errorf("updating transaction: %w", mapWriteError(err))
	}

	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}
