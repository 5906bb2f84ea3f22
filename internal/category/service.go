package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/paging"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context, filter ListFilter) ([]*Category, int, error)
	// AllCategories returns every category, oldest first.
	AllCategories(ctx context.Context) ([]*Category, error)
	// FindByAlias returns the oldest category carrying alias, or ErrNotFound.
	FindByAlias(ctx context.Context, alias string) (*Category, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Name    string
	Color   string
	Aliases []string
}

type UpdateParams struct {
	Name    *string
	Color   *string
	Aliases *[]string
}

type ListFilter struct {
	Search string
	Query  paging.Query
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Category, error) {
	c := &Category{
		Name:    strings.TrimSpace(params.Name),
		Color:   strings.TrimSpace(params.Color),
		Aliases: normalizeAliases(params.Aliases),
	}
	if c.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidParams)
	}

	if err := s.checkAliases(ctx, uuid.Nil, c.Aliases); err != nil {
		return nil, err
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*paging.Result[*Category], error) {
	filter.Query = filter.Query.Normalize()

	cats, total, err := s.repo.ListCategories(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &paging.Result[*Category]{
		Items: cats,
		Total: total,
		Page:  filter.Query.Page,
		Take:  filter.Query.Take,
	}, nil
}

// All returns every category in a stable order, as the reconciler needs.
func (s *Service) All(ctx context.Context) ([]*Category, error) {
	return s.repo.AllCategories(ctx)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		c.Name = strings.TrimSpace(*params.Name)
		if c.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidParams)
		}
	}

	if params.Color != nil {
		c.Color = strings.TrimSpace(*params.Color)
	}

	if params.Aliases != nil {
		c.Aliases = normalizeAliases(*params.Aliases)
		if err := s.checkAliases(ctx, c.ID, c.Aliases); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// AddAlias attaches alias to the category. Adding an alias the category
// already has is a no-op.
func (s *Service) AddAlias(ctx context.Context, id uuid.UUID, alias string) (*Category, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, fmt.Errorf("%w: alias is empty", ErrInvalidParams)
	}

	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.HasAlias(alias) {
		return c, nil
	}

	if err := s.checkAliases(ctx, c.ID, []string{alias}); err != nil {
		return nil, err
	}

	c.Aliases = append(c.Aliases, alias)
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCategory(ctx, id)
}

// checkAliases fails with ErrAliasTaken when any alias already belongs to
// a category other than owner.
func (s *Service) checkAliases(ctx context.Context, owner uuid.UUID, aliases []string) error {
	for _, alias := range aliases {
		other, err := s.repo.FindByAlias(ctx, alias)
		if errors.Is(err, ErrNotFound) {
			continue
		}

		if err != nil {
			return fmt.Errorf("checking alias %q: %w", alias, err)
		}

		if other.ID != owner {
			return fmt.Errorf("%w: %q is used by %s", ErrAliasTaken, alias, other.Name)
		}
	}

	return nil
}
