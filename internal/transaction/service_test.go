package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/paging"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func TestService_Create(t *testing.T) {
	categoryID := uuid.New()
	ts := time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)

	type args struct {
		params transaction.CreateParams
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{
				params: transaction.CreateParams{
					Description: "  Linella  ",
					CategoryID:  categoryID,
					Amount:      decimal.RequireFromString("-120.50"),
					Timestamp:   ts,
				},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, "Linella", tx.Description)
						tx.ID = uuid.New()
						tx.CreatedAt = time.Now()

						return nil
					})
			},
		},
		{
			name: "MissingCategory",
			args: args{
				params: transaction.CreateParams{Description: "Linella", Timestamp: ts},
			},
			wantErr: transaction.ErrInvalidParams,
		},
		{
			name: "MissingDescriptionAndTimestamp",
			args: args{
				params: transaction.CreateParams{CategoryID: categoryID},
			},
			wantErr: transaction.ErrInvalidParams,
		},
		{
			name: "RepoError",
			args: args{
				params: transaction.CreateParams{Description: "Linella", CategoryID: categoryID, Timestamp: ts},
			},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo)
			got, err := svc.Create(context.Background(), tt.args.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, transaction.ErrInvalidParams) {
					assert.ErrorIs(t, err, transaction.ErrInvalidParams)
				}

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
			assert.Equal(t, categoryID, got.CategoryID)
			assert.True(t, decimal.RequireFromString("-120.50").Equal(got.Amount))
		})
	}
}

func TestService_List(t *testing.T) {
	type args struct {
		filter transaction.ListFilter
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantLen   int
		wantTotal int
		wantErr   bool
	}

	normalized := transaction.ListFilter{Query: paging.Query{Page: 1, Take: paging.DefaultTake}}

	tests := []testCase{
		{
			name: "Success",
			args: args{filter: transaction.ListFilter{}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), normalized).
					Return([]*transaction.Transaction{
						{ID: uuid.New()},
						{ID: uuid.New()},
					}, 14, nil)
			},
			wantLen:   2,
			wantTotal: 14,
		},
		{
			name: "Error",
			args: args{filter: transaction.ListFilter{}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), normalized).
					Return(nil, 0, errors.New("list error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo)
			got, err := svc.List(context.Background(), tt.args.filter)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got.Items, tt.wantLen)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Equal(t, 1, got.Page)
		})
	}
}

func TestService_Update(t *testing.T) {
	id := uuid.New()
	newCategory := uuid.New()

	existing := func() *transaction.Transaction {
		return &transaction.Transaction{
			ID:          id,
			Description: "Linella",
			CategoryID:  uuid.New(),
			Amount:      decimal.RequireFromString("-10"),
			Timestamp:   time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC),
		}
	}

	type testCase struct {
		name      string
		params    transaction.UpdateParams
		setupMock func(m *transaction.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "ChangesOnlyGivenFields",
			params: transaction.UpdateParams{CategoryID: &newCategory},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), id).Return(existing(), nil)
				m.EXPECT().
					UpdateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, newCategory, tx.CategoryID)
						assert.Equal(t, "Linella", tx.Description)

						return nil
					})
			},
		},
		{
			name:   "BlankDescriptionRejected",
			params: transaction.UpdateParams{Description: new("   ")},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), id).Return(existing(), nil)
			},
			wantErr: transaction.ErrInvalidParams,
		},
		{
			name:   "NotFound",
			params: transaction.UpdateParams{},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().GetTransaction(gomock.Any(), id).Return(nil, transaction.ErrNotFound)
			},
			wantErr: transaction.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := transaction.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := transaction.NewService(repo).Update(context.Background(), id, tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
		})
	}
}
