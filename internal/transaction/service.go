package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/paging"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, int, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Description string
	CategoryID  uuid.UUID
	Amount      decimal.Decimal
	Timestamp   time.Time
}

// UpdateParams holds the fields to change; nil fields are left as they are.
type UpdateParams struct {
	Description *string
	CategoryID  *uuid.UUID
	Amount      *decimal.Decimal
	Timestamp   *time.Time
}

type ListFilter struct {
	CategoryID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
	Search     string
	Query      paging.Query
}

func (p CreateParams) validate() error {
	var problems []string

	if strings.TrimSpace(p.Description) == "" {
		problems = append(problems, "description is required")
	}

	if p.CategoryID == uuid.Nil {
		problems = append(problems, "category is required")
	}

	if p.Timestamp.IsZero() {
		problems = append(problems, "timestamp is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, ", "))
	}

	return nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	tx := &Transaction{
		Description: strings.TrimSpace(params.Description),
		CategoryID:  params.CategoryID,
		Amount:      params.Amount,
		Timestamp:   params.Timestamp,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*paging.Result[*Transaction], error) {
	filter.Query = filter.Query.Normalize()

	txs, total, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &paging.Result[*Transaction]{
		Items: txs,
		Total: total,
		Page:  filter.Query.Page,
		Take:  filter.Query.Take,
	}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Description != nil {
		tx.Description = strings.TrimSpace(*params.Description)
	}

	if params.CategoryID != nil {
		tx.CategoryID = *params.CategoryID
	}

	if params.Amount != nil {
		tx.Amount = *params.Amount
	}

	if params.Timestamp != nil {
		tx.Timestamp = *params.Timestamp
	}

	check := CreateParams{Description: tx.Description, CategoryID: tx.CategoryID, Amount: tx.Amount, Timestamp: tx.Timestamp}
	if err := check.validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, id)
}
