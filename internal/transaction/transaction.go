package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a persisted, categorized bank transaction.
// Amount is signed: negative values are debits.
type Transaction struct {
	ID           uuid.UUID
	Description  string
	CategoryID   uuid.UUID
	CategoryName string // Loaded via JOIN
	Amount       decimal.Decimal
	Timestamp    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
