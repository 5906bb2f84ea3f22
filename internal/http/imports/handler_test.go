package imports_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/http/imports"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/session"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const statementHTML = `<!DOCTYPE html><html><body><div class="operations">
<div class="month-delimiter">January 2024</div>
<div class="day">
	<div class="day-header">5 January</div>
	<div class="history-item">
		<div class="history-item-description"><a href="#">Linella</a></div>
		<div class="history-item-state" data-category="Groceries"></div>
		<div class="history-item-time">09:30</div>
		<div class="history-item-amount total"><span class="amount">-120.50</span> MDL</div>
	</div>
	<div class="history-item">
		<div class="history-item-description"><a href="#">Uber</a></div>
		<div class="history-item-state" data-category="Taxi"></div>
		<div class="history-item-time">22:10</div>
	</div>
</div>
</div></body></html>`

type fakeCategories struct {
	cats []*category.Category
}

func (f *fakeCategories) All(context.Context) ([]*category.Category, error) {
	return f.cats, nil
}

func (f *fakeCategories) Create(_ context.Context, p category.CreateParams) (*category.Category, error) {
	c := &category.Category{ID: uuid.New(), Name: p.Name, Color: p.Color, Aliases: p.Aliases}
	f.cats = append(f.cats, c)

	return c, nil
}

func (f *fakeCategories) AddAlias(_ context.Context, id uuid.UUID, _ string) (*category.Category, error) {
	return &category.Category{ID: id}, nil
}

type fakeCreator struct {
	mu    sync.Mutex
	calls []transaction.CreateParams
}

func (f *fakeCreator) Create(_ context.Context, p transaction.CreateParams) (*transaction.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, p)

	return &transaction.Transaction{ID: uuid.New(), Description: p.Description}, nil
}

type fixture struct {
	router  http.Handler
	creator *fakeCreator
	food    *category.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	food := &category.Category{ID: uuid.New(), Name: "Food", Aliases: []string{"Groceries"}}
	creator := &fakeCreator{}
	svc := session.NewService(
		importer.NewService(time.UTC),
		&fakeCategories{cats: []*category.Category{food}},
		creator,
		session.NewStore(),
		0,
	)

	router := chi.NewRouter()
	router.Route("/imports", imports.NewHandler(svc).Routes)

	return &fixture{router: router, creator: creator, food: food}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func (f *fixture) upload(t *testing.T, bank, name, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("bank", bank))

	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)

	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

type sessionBody struct {
	ID       uuid.UUID `json:"id"`
	Stage    string    `json:"stage"`
	Mappings []struct {
		Alias      string     `json:"alias"`
		CategoryID *uuid.UUID `json:"category_id"`
	} `json:"mappings"`
	Transactions []txBody `json:"transactions"`
}

type txBody struct {
	ID          uuid.UUID         `json:"id"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Reason      string            `json:"reason"`
	FieldErrors map[string]string `json:"field_errors"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	return v
}

func TestHandler_ImportFlow(t *testing.T) {
	f := newFixture(t)
	taxi := uuid.New()

	rec := f.upload(t, "vb", "statement.html", statementHTML)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	sess := decode[sessionBody](t, rec)
	assert.Equal(t, "mapping", sess.Stage)
	require.Len(t, sess.Transactions, 2)
	assert.Contains(t, sess.Transactions[1].FieldErrors, "amount")
	require.Len(t, sess.Mappings, 2)
	assert.Equal(t, f.food.ID, *sess.Mappings[0].CategoryID)
	assert.Nil(t, sess.Mappings[1].CategoryID)

	base := "/imports/" + sess.ID.String()

	rec = f.do(t, http.MethodPut, base+"/mappings", `{"mappings":[{"alias":"Taxi","category_id":"`+taxi.String()+`"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, base+"/run", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, base+"/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
	assert.Contains(t, rec.Body.String(), `"imported":1`)

	rec = f.do(t, http.MethodGet, base+"/review", "")
	require.Equal(t, http.StatusOK, rec.Code)

	pending := decode[struct {
		Remaining    int      `json:"remaining"`
		Transactions []txBody `json:"transactions"`
	}](t, rec)
	require.Equal(t, 1, pending.Remaining)
	uber := pending.Transactions[0]
	assert.Equal(t, "Uber", uber.Description)
	assert.Contains(t, uber.Reason, "amount")

	rec = f.do(t, http.MethodPost, base+"/review/"+uber.ID.String(), `{"category_id":"`+taxi.String()+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/review/"+uber.ID.String(), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/review/"+uber.ID.String(), `{"category_id":"`+taxi.String()+`","amount":"-45"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "done", decode[txBody](t, rec).Status)

	rec = f.do(t, http.MethodPost, base+"/review/"+uber.ID.String()+"/skip", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, base+"/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "complete", decode[sessionBody](t, rec).Stage)

	require.Len(t, f.creator.calls, 2)
	assert.Equal(t, taxi, f.creator.calls[1].CategoryID)

	rec = f.do(t, http.MethodDelete, base+"/", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, base+"/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Upload_Errors(t *testing.T) {
	type testCase struct {
		name       string
		bank       string
		file       string
		content    string
		wantStatus int
	}

	tests := []testCase{
		{name: "UnknownBank", bank: "nope", file: "a.html", content: statementHTML, wantStatus: http.StatusBadRequest},
		{name: "WrongExtension", bank: "vb", file: "a.pdf", content: statementHTML, wantStatus: http.StatusBadRequest},
		{name: "EmptyFile", bank: "vb", file: "a.html", content: "", wantStatus: http.StatusBadRequest},
		{name: "NoEntries", bank: "vb", file: "a.html", content: "<html><body></body></html>", wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFixture(t).upload(t, tt.bank, tt.file, tt.content)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_BeforeRun(t *testing.T) {
	f := newFixture(t)

	rec := f.upload(t, "vb", "statement.html", statementHTML)
	require.Equal(t, http.StatusCreated, rec.Code)

	base := "/imports/" + decode[sessionBody](t, rec).ID.String()

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, base+"/cancel", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodGet, base+"/review", "").Code)

	rec = f.do(t, http.MethodGet, base+"/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"idle"`)

	rec = f.do(t, http.MethodPost, base+"/mappings/category", `{"alias":"Taxi","name":"Transport","color":"#00f"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, base+"/", "")
	sess := decode[sessionBody](t, rec)
	require.Len(t, sess.Mappings, 2)
	assert.NotNil(t, sess.Mappings[1].CategoryID)
}

func TestHandler_UnknownSession(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/imports/"+uuid.NewString()+"/", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/imports/nope/", "").Code)
}

func TestHandler_Banks(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/imports/banks", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bank":"vb"`)
	assert.Contains(t, rec.Body.String(), `"bank":"cgd"`)
}
