package statement

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoTransactions is returned when a statement yields no entries at all.
	ErrNoTransactions = errors.New("no transactions found in statement")
	// ErrUnknownTransaction is returned for an id that is not in the batch.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrStatusChanged is returned by Batch.Transition when the
	// transaction is no longer in the expected state.
	ErrStatusChanged = errors.New("transaction status changed")
)

// Field names an extracted attribute of a statement entry.
type Field string

const (
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldAmount      Field = "amount"
	FieldTimestamp   Field = "timestamp"
)

// Fields holds the values extracted from one entry. A field listed in
// Transaction.FieldErrors holds its zero value and must not be trusted.
type Fields struct {
	Description   string
	CategoryAlias string
	Amount        decimal.Decimal
	Timestamp     time.Time
}

// Transaction is one entry extracted from a bank statement.
type Transaction struct {
	ID          uuid.UUID
	Fields      Fields
	FieldErrors map[Field]string
	Status      Status
}

// HasFieldErrors reports whether any field failed to extract.
func (t *Transaction) HasFieldErrors() bool {
	return len(t.FieldErrors) > 0
}

// SortedFieldErrors returns the failed fields in a fixed order.
func (t *Transaction) SortedFieldErrors() []Field {
	return slices.Sorted(maps.Keys(t.FieldErrors))
}

func (t *Transaction) clone() Transaction {
	c := *t
	c.FieldErrors = maps.Clone(t.FieldErrors)

	return c
}
