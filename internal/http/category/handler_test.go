package category_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/category"
	catHandler "github.com/MrJamesThe3rd/tally/internal/http/category"
)

func newRouter(t *testing.T) (http.Handler, *category.MockRepository) {
	t.Helper()

	repo := category.NewMockRepository(gomock.NewController(t))
	router := chi.NewRouter()
	router.Route("/categories", catHandler.NewHandler(category.NewService(repo)).Routes)

	return router, repo
}

func TestHandler_Create(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		setupMock  func(m *category.MockRepository)
		wantStatus int
	}

	tests := []testCase{
		{
			name: "Created",
			body: `{"name":"Food","color":"#ff0000","aliases":["Groceries"," Groceries "]}`,
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().FindByAlias(gomock.Any(), "Groceries").Return(nil, category.ErrNotFound)
				m.EXPECT().
					CreateCategory(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c *category.Category) error {
						c.ID = uuid.New()
						return nil
					})
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "AliasTaken",
			body: `{"name":"Food","aliases":["Groceries"]}`,
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().FindByAlias(gomock.Any(), "Groceries").Return(&category.Category{ID: uuid.New(), Name: "Other"}, nil)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "MissingName",
			body:       `{"name":"  "}`,
			setupMock:  func(*category.MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, repo := newRouter(t)
			tt.setupMock(repo)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories/", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandler_CreateResponse(t *testing.T) {
	router, repo := newRouter(t)

	repo.EXPECT().
		CreateCategory(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *category.Category) error {
			c.ID = uuid.New()
			return nil
		})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories/", strings.NewReader(`{"name":"Food"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Food", body["name"])
	assert.Equal(t, []any{}, body["aliases"])
}

func TestHandler_AddAlias(t *testing.T) {
	router, repo := newRouter(t)
	id := uuid.New()

	repo.EXPECT().GetCategory(gomock.Any(), id).Return(&category.Category{ID: id, Name: "Food"}, nil)
	repo.EXPECT().FindByAlias(gomock.Any(), "Groceries").Return(nil, category.ErrNotFound)
	repo.EXPECT().
		UpdateCategory(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c *category.Category) error {
			assert.Equal(t, []string{"Groceries"}, c.Aliases)
			return nil
		})

	req := httptest.NewRequest(http.MethodPost, "/categories/"+id.String()+"/aliases", strings.NewReader(`{"alias":"Groceries"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_DeleteInUse(t *testing.T) {
	router, repo := newRouter(t)
	id := uuid.New()

	repo.EXPECT().DeleteCategory(gomock.Any(), id).Return(category.ErrInUse)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/categories/"+id.String(), nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_List(t *testing.T) {
	router, repo := newRouter(t)

	repo.EXPECT().
		ListCategories(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f category.ListFilter) ([]*category.Category, int, error) {
			assert.Equal(t, "fo", f.Search)
			assert.Equal(t, "name", f.Query.OrderBy)
			assert.True(t, f.Query.Desc)
			assert.Equal(t, 10, f.Query.Take)

			return []*category.Category{{ID: uuid.New(), Name: "Food"}}, 1, nil
		})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/?search=fo&order_by=name&order_direction=desc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}
