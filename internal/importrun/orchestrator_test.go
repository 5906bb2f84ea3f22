package importrun_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/importrun"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
	"github.com/MrJamesThe3rd/tally/internal/statement"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type fakeCreator struct {
	mu     sync.Mutex
	calls  []transaction.CreateParams
	fail   map[string]error
	before func(n int)
}

func (f *fakeCreator) Create(_ context.Context, p transaction.CreateParams) (*transaction.Transaction, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	n := len(f.calls)
	hook := f.before
	err := f.fail[p.Description]
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	if err != nil {
		return nil, err
	}

	return &transaction.Transaction{
		ID:          uuid.New(),
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Amount:      p.Amount,
		Timestamp:   p.Timestamp,
	}, nil
}

func (f *fakeCreator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

type fakeAliases struct {
	added []string
	err   error
}

func (f *fakeAliases) AddAlias(_ context.Context, id uuid.UUID, alias string) (*category.Category, error) {
	f.added = append(f.added, alias)
	return &category.Category{ID: id}, f.err
}

var ts = time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)

func entry(desc, alias string, fieldErrs map[statement.Field]string) *statement.Transaction {
	return &statement.Transaction{
		ID: uuid.New(),
		Fields: statement.Fields{
			Description:   desc,
			CategoryAlias: alias,
			Amount:        decimal.RequireFromString("-10.00"),
			Timestamp:     ts,
		},
		FieldErrors: fieldErrs,
		Status:      statement.Idle{},
	}
}

func mappedTable(alias string, id uuid.UUID, unresolved ...string) *reconcile.Table {
	mappings := []reconcile.Mapping{{Alias: alias, CategoryID: &id}}
	for _, a := range unresolved {
		mappings = append(mappings, reconcile.Mapping{Alias: a})
	}

	return reconcile.NewTable(mappings)
}

func statusOf(t *testing.T, b *statement.Batch, id uuid.UUID) statement.Status {
	t.Helper()

	tx, ok := b.Get(id)
	require.True(t, ok)

	return tx.Status
}

func TestRun_ExampleScenario(t *testing.T) {
	groceries := uuid.New()

	tx1 := entry("Linella", "Groceries", nil)
	tx2 := entry("Orange Money", "Transfers", map[statement.Field]string{statement.FieldAmount: "amount not found"})
	tx3 := entry("Kaufland", "Groceries", nil)
	batch := statement.NewBatch([]*statement.Transaction{tx1, tx2, tx3})

	creator := &fakeCreator{}
	got := importrun.New(creator).Run(context.Background(), batch,
		mappedTable("Groceries", groceries, "Transfers"), &importrun.CancelToken{}, nil)

	assert.Equal(t, importrun.Progress{Status: importrun.StatusCompleted, Total: 3, Imported: 2, Failed: 1}, got)
	assert.Equal(t, statement.Failed{Reason: importrun.ReasonUnmapped}, statusOf(t, batch, tx2.ID))

	done, ok := statusOf(t, batch, tx1.ID).(statement.Done)
	require.True(t, ok)
	assert.Equal(t, groceries, done.Record.CategoryID)
	assert.Equal(t, "Linella", done.Record.Description)

	assert.Equal(t, statement.KindDone, statusOf(t, batch, tx3.ID).Kind())
	assert.Equal(t, 2, creator.count())
}

func TestRun_FailureIsolation(t *testing.T) {
	groceries := uuid.New()

	type testCase struct {
		name       string
		failWith   error
		fieldErrs  map[statement.Field]string
		wantReason string
		wantCalls  int
	}

	tests := []testCase{
		{
			name:       "PersistenceError",
			failWith:   errors.New("creating transaction: connection reset"),
			wantReason: "creating transaction: connection reset",
			wantCalls:  3,
		},
		{
			name:       "EmptyErrorMessage",
			failWith:   errors.New("  "),
			wantReason: importrun.ReasonGeneric,
			wantCalls:  3,
		},
		{
			name: "FieldErrors",
			fieldErrs: map[statement.Field]string{
				statement.FieldTimestamp: "time not found",
				statement.FieldAmount:    "amount not found",
			},
			wantReason: "invalid fields: amount: amount not found; timestamp: time not found",
			wantCalls:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := entry("A", "Groceries", nil)
			middle := entry("B", "Groceries", tt.fieldErrs)
			last := entry("C", "Groceries", nil)
			batch := statement.NewBatch([]*statement.Transaction{first, middle, last})

			creator := &fakeCreator{}
			if tt.failWith != nil {
				creator.fail = map[string]error{"B": tt.failWith}
			}

			got := importrun.New(creator).Run(context.Background(), batch,
				mappedTable("Groceries", groceries), nil, nil)

			assert.Equal(t, importrun.StatusCompleted, got.Status)
			assert.Equal(t, 2, got.Imported)
			assert.Equal(t, 1, got.Failed)
			assert.Equal(t, got.Total, got.Imported+got.Failed)

			assert.Equal(t, statement.Failed{Reason: tt.wantReason}, statusOf(t, batch, middle.ID))
			assert.Equal(t, statement.KindDone, statusOf(t, batch, last.ID).Kind())
			assert.Equal(t, tt.wantCalls, creator.count())
		})
	}
}

func TestRun_CancellationLeavesRestIdle(t *testing.T) {
	groceries := uuid.New()

	txs := []*statement.Transaction{
		entry("A", "Groceries", nil),
		entry("B", "Groceries", nil),
		entry("C", "Groceries", nil),
		entry("D", "Groceries", nil),
	}
	batch := statement.NewBatch(txs)

	token := &importrun.CancelToken{}
	creator := &fakeCreator{before: func(n int) {
		if n == 2 {
			token.Cancel()
		}
	}}

	got := importrun.New(creator).Run(context.Background(), batch, mappedTable("Groceries", groceries), token, nil)

	// The in-flight second call finishes; nothing after it is visited.
	assert.Equal(t, importrun.Progress{Status: importrun.StatusCancelled, Total: 4, Imported: 2}, got)
	assert.LessOrEqual(t, got.Imported+got.Failed, got.Total)

	assert.Equal(t, statement.KindDone, statusOf(t, batch, txs[0].ID).Kind())
	assert.Equal(t, statement.KindDone, statusOf(t, batch, txs[1].ID).Kind())
	assert.Equal(t, statement.Idle{}, statusOf(t, batch, txs[2].ID))
	assert.Equal(t, statement.Idle{}, statusOf(t, batch, txs[3].ID))

	// A fresh run resumes with the untouched items only.
	resumed := importrun.New(creator).Run(context.Background(), batch, mappedTable("Groceries", groceries), nil, nil)
	assert.Equal(t, importrun.Progress{Status: importrun.StatusCompleted, Total: 2, Imported: 2}, resumed)
	assert.Equal(t, 4, creator.count())
}

func TestRun_ContextCancelled(t *testing.T) {
	batch := statement.NewBatch([]*statement.Transaction{entry("A", "Groceries", nil)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	creator := &fakeCreator{}
	got := importrun.New(creator).Run(ctx, batch, mappedTable("Groceries", uuid.New()), nil, nil)

	assert.Equal(t, importrun.StatusCancelled, got.Status)
	assert.Zero(t, creator.count())
	assert.Equal(t, 1, batch.Count(statement.KindIdle))
}

func TestRun_FailedItemsAreNotRetried(t *testing.T) {
	groceries := uuid.New()

	ok := entry("A", "Groceries", nil)
	bad := entry("B", "Groceries", nil)
	unmapped := entry("C", "Salary", nil)
	batch := statement.NewBatch([]*statement.Transaction{ok, bad, unmapped})

	creator := &fakeCreator{fail: map[string]error{"B": errors.New("db down")}}
	orch := importrun.New(creator)

	first := orch.Run(context.Background(), batch, mappedTable("Groceries", groceries, "Salary"), nil, nil)
	assert.Equal(t, importrun.Progress{Status: importrun.StatusCompleted, Total: 3, Imported: 1, Failed: 2}, first)

	// Mapping Salary now does not revive the item that already failed.
	creator.fail = nil
	table := mappedTable("Groceries", groceries)

	second := orch.Run(context.Background(), batch, table, nil, nil)
	assert.Equal(t, importrun.Progress{Status: importrun.StatusCompleted}, second)
	assert.Equal(t, 2, creator.count())
	assert.Equal(t, statement.Failed{Reason: "db down"}, statusOf(t, batch, bad.ID))
	assert.Equal(t, statement.Failed{Reason: importrun.ReasonUnmapped}, statusOf(t, batch, unmapped.ID))
}

func TestRun_SkipsItemsClaimedElsewhere(t *testing.T) {
	groceries := uuid.New()

	a := entry("A", "Groceries", nil)
	b := entry("B", "Groceries", nil)
	batch := statement.NewBatch([]*statement.Transaction{a, b})

	creator := &fakeCreator{}
	creator.before = func(n int) {
		if n == 1 {
			_, err := batch.Transition(b.ID, statement.KindIdle, statement.Loading{})
			require.NoError(t, err)
		}
	}

	got := importrun.New(creator).Run(context.Background(), batch, mappedTable("Groceries", groceries), nil, nil)

	assert.Equal(t, importrun.Progress{Status: importrun.StatusCompleted, Total: 2, Imported: 1}, got)
	assert.Equal(t, 1, creator.count())
	assert.Equal(t, statement.Loading{}, statusOf(t, batch, b.ID))
}

func TestRun_ProgressIsPublishedPerItem(t *testing.T) {
	groceries := uuid.New()

	batch := statement.NewBatch([]*statement.Transaction{
		entry("A", "Groceries", nil),
		entry("B", "Unknown", nil),
		entry("C", "Groceries", nil),
	})

	var updates []importrun.Progress

	importrun.New(&fakeCreator{}).Run(context.Background(), batch, mappedTable("Groceries", groceries, "Unknown"), nil,
		func(p importrun.Progress) { updates = append(updates, p) })

	require.Len(t, updates, 5)
	assert.Equal(t, importrun.Progress{Status: importrun.StatusRunning, Total: 3}, updates[0])
	assert.Equal(t, importrun.Progress{Status: importrun.StatusCompleted, Total: 3, Imported: 2, Failed: 1}, updates[4])

	for i := 1; i < len(updates); i++ {
		prev, cur := updates[i-1], updates[i]
		assert.GreaterOrEqual(t, cur.Imported, prev.Imported)
		assert.GreaterOrEqual(t, cur.Failed, prev.Failed)
		assert.LessOrEqual(t, cur.Imported+cur.Failed, cur.Total)
	}
}

func TestRun_RemembersAliases(t *testing.T) {
	groceries := uuid.New()
	transfers := uuid.New()

	table := reconcile.NewTable([]reconcile.Mapping{
		{Alias: "Groceries", CategoryID: &groceries},
		{Alias: "Transfers"},
		{Alias: "Fuel"},
	})
	require.NoError(t, table.Assign("Transfers", transfers, true))
	require.NoError(t, table.Assign("Fuel", transfers, false))

	batch := statement.NewBatch([]*statement.Transaction{entry("A", "Transfers", nil)})
	aliases := &fakeAliases{err: errors.New("alias already belongs to another category")}

	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	got := importrun.New(&fakeCreator{}, importrun.WithAliasWriter(aliases)).Run(ctx, batch, table, nil, nil)

	assert.Equal(t, []string{"Transfers"}, aliases.added)
	assert.Equal(t, 1, got.Imported, "an alias write failure must not stop the import")
	assert.Contains(t, buf.String(), "could not remember alias")
}
