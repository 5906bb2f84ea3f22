package statement_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/statement"
)

func newTx(alias string) *statement.Transaction {
	return &statement.Transaction{
		ID:     uuid.New(),
		Fields: statement.Fields{Description: "Linella", CategoryAlias: alias, Amount: decimal.NewFromInt(-10)},
	}
}

func TestNewBatch_DefaultsToIdle(t *testing.T) {
	a, b := newTx("Groceries"), newTx("Transfers")
	b.Status = statement.Failed{Reason: "earlier"}

	batch := statement.NewBatch([]*statement.Transaction{a, b})

	require.Equal(t, 2, batch.Len())
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, batch.IDs())

	got, ok := batch.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, statement.KindIdle, got.Status.Kind())

	got, ok = batch.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, statement.Failed{Reason: "earlier"}, got.Status)
}

func TestBatch_SetStatus(t *testing.T) {
	a := newTx("Groceries")
	batch := statement.NewBatch([]*statement.Transaction{a})

	require.NoError(t, batch.SetStatus(a.ID, statement.Loading{}))
	assert.Equal(t, 1, batch.Count(statement.KindLoading))
	assert.Equal(t, 0, batch.Count(statement.KindIdle))

	err := batch.SetStatus(uuid.New(), statement.Skipped{})
	assert.ErrorIs(t, err, statement.ErrUnknownTransaction)
}

func TestBatch_Transition(t *testing.T) {
	a := newTx("Groceries")
	batch := statement.NewBatch([]*statement.Transaction{a})

	before, err := batch.Transition(a.ID, statement.KindIdle, statement.Loading{})
	require.NoError(t, err)
	assert.Equal(t, statement.Idle{}, before.Status)
	assert.Equal(t, 1, batch.Count(statement.KindLoading))

	current, err := batch.Transition(a.ID, statement.KindIdle, statement.Loading{})
	assert.ErrorIs(t, err, statement.ErrStatusChanged)
	assert.Equal(t, statement.Loading{}, current.Status)

	_, err = batch.Transition(uuid.New(), statement.KindIdle, statement.Loading{})
	assert.ErrorIs(t, err, statement.ErrUnknownTransaction)
}

func TestBatch_TransitionHasOneWinner(t *testing.T) {
	a := newTx("Groceries")
	a.Status = statement.Failed{Reason: "category not mapped"}
	batch := statement.NewBatch([]*statement.Transaction{a})

	var (
		wg    sync.WaitGroup
		wins  atomic.Int32
		start = make(chan struct{})
	)

	for range 16 {
		wg.Go(func() {
			<-start

			if _, err := batch.Transition(a.ID, statement.KindError, statement.Loading{}); err == nil {
				wins.Add(1)
			}
		})
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestBatch_SetFields(t *testing.T) {
	a := newTx("Groceries")
	a.FieldErrors = map[statement.Field]string{statement.FieldAmount: "amount not found"}
	batch := statement.NewBatch([]*statement.Transaction{a})

	fields := statement.Fields{Description: "Fixed", CategoryAlias: "Groceries", Amount: decimal.NewFromInt(5)}
	require.NoError(t, batch.SetFields(a.ID, fields, nil))

	got, _ := batch.Get(a.ID)
	assert.Equal(t, "Fixed", got.Fields.Description)
	assert.False(t, got.HasFieldErrors())

	assert.ErrorIs(t, batch.SetFields(uuid.New(), fields, nil), statement.ErrUnknownTransaction)
}

func TestBatch_ReadsAreCopies(t *testing.T) {
	a := newTx("Groceries")
	a.FieldErrors = map[statement.Field]string{statement.FieldAmount: "amount not found"}
	batch := statement.NewBatch([]*statement.Transaction{a})

	got, _ := batch.Get(a.ID)
	got.FieldErrors[statement.FieldTimestamp] = "tampered"
	got.Status = statement.Skipped{}

	snap := batch.Snapshot()
	require.Len(t, snap, 1)
	assert.Len(t, snap[0].FieldErrors, 1)
	assert.Equal(t, statement.KindIdle, snap[0].Status.Kind())
}

func TestTransaction_SortedFieldErrors(t *testing.T) {
	tx := statement.Transaction{FieldErrors: map[statement.Field]string{
		statement.FieldTimestamp: "bad date",
		statement.FieldAmount:    "missing",
	}}

	assert.Equal(t, []statement.Field{statement.FieldAmount, statement.FieldTimestamp}, tx.SortedFieldErrors())
}

func TestStatus_Kinds(t *testing.T) {
	tests := []struct {
		status statement.Status
		want   statement.StatusKind
	}{
		{status: statement.Idle{}, want: statement.KindIdle},
		{status: statement.Loading{}, want: statement.KindLoading},
		{status: statement.Done{}, want: statement.KindDone},
		{status: statement.Skipped{}, want: statement.KindSkipped},
		{status: statement.Failed{Reason: "x"}, want: statement.KindError},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Kind())
		})
	}
}
