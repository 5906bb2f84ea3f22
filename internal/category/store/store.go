package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/MrJamesThe3rd/tally/internal/category"
)

// foreignKeyViolation is raised when a category still has transactions.
const foreignKeyViolation = "23503"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectCategoryColumns = `c.id, c.name, c.color, c.aliases, c.created_at, c.updated_at`

var orderColumns = map[string]string{
	"name":       "c.name",
	"created_at": "c.created_at",
	"updated_at": "c.updated_at",
}

// scanCategory decodes the text[] aliases column through pgtype, since
// database/sql has no array support of its own.
func scanCategory(m *pgtype.Map, s scanner, extra ...any) (*category.Category, error) {
	var c category.Category

	var aliases []string

	dest := []any{&c.ID, &c.Name, &c.Color, m.SQLScanner(&aliases), &c.CreatedAt, &c.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	c.Aliases = aliases
	if c.Aliases == nil {
		c.Aliases = []string{}
	}

	return &c, nil
}

func aliasesParam(aliases []string) []string {
	if aliases == nil {
		return []string{}
	}

	return aliases
}

func (s *Store) CreateCategory(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (name, color, aliases, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query, c.Name, c.Color, aliasesParam(c.Aliases)).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	query := `SELECT ` + selectCategoryColumns + ` FROM categories c WHERE c.id = $1`

	c, err := scanCategory(pgtype.NewMap(), s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, category.ErrNotFound
		}

		return nil, fmt.Errorf("getting category: %w", err)
	}

	return c, nil
}

func (s *Store) FindByAlias(ctx context.Context, alias string) (*category.Category, error) {
	query := `SELECT ` + selectCategoryColumns + `
		FROM categories c
		WHERE $1 = ANY (c.aliases)
		ORDER BY c.created_at ASC, c.id ASC
		LIMIT 1`

	c, err := scanCategory(pgtype.NewMap(), s.db.QueryRowContext(ctx, query, alias))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, category.ErrNotFound
		}

		return nil, fmt.Errorf("finding category by alias: %w", err)
	}

	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, filter category.ListFilter) ([]*category.Category, int, error) {
	query := `SELECT ` + selectCategoryColumns + `, COUNT(*) OVER () FROM categories c WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Search != "" {
		query += fmt.Sprintf(" AND c.name ILIKE '%%' || $%d || '%%'", argIdx)

		args = append(args, filter.Search)
		argIdx++
	}

	q := filter.Query.Normalize()
	query += fmt.Sprintf(" ORDER BY %s %s, c.id ASC LIMIT $%d OFFSET $%d",
		q.Column(orderColumns, "c.created_at"), q.Direction(), argIdx, argIdx+1)
	args = append(args, q.Take, q.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()

	var (
		cats  []*category.Category
		total int
	)

	for rows.Next() {
		c, err := scanCategory(m, rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning category: %w", err)
		}

		cats = append(cats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating category rows: %w", err)
	}

	return cats, total, nil
}

func (s *Store) AllCategories(ctx context.Context) ([]*category.Category, error) {
	query := `SELECT ` + selectCategoryColumns + ` FROM categories c ORDER BY c.created_at ASC, c.id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing all categories: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()

	var cats []*category.Category

	for rows.Next() {
		c, err := scanCategory(m, rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		cats = append(cats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}

	return cats, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *category.Category) error {
	query := `
		UPDATE categories
		SET name = $1, color = $2, aliases = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query, c.Name, c.Color, aliasesParam(c.Aliases), c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return category.ErrNotFound
		}

		return fmt.Errorf("updating category: %w", err)
	}

	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return category.ErrInUse
		}

		return fmt.Errorf("deleting category: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	if n == 0 {
		return category.ErrNotFound
	}

	return nil
}
