package statement

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Batch is the ordered set of transactions produced by one parse. All
// mutations address transactions by id. Reads return copies.
type Batch struct {
	mu    sync.RWMutex
	order []uuid.UUID
	items map[uuid.UUID]*Transaction
}

// NewBatch takes ownership of txs. Transactions without a status start Idle.
func NewBatch(txs []*Transaction) *Batch {
	b := &Batch{
		order: make([]uuid.UUID, 0, len(txs)),
		items: make(map[uuid.UUID]*Transaction, len(txs)),
	}

	for _, tx := range txs {
		if tx.Status == nil {
			tx.Status = Idle{}
		}

		b.order = append(b.order, tx.ID)
		b.items[tx.ID] = tx
	}

	return b
}

func (b *Batch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.order)
}

// IDs returns the transaction ids in statement order.
func (b *Batch) IDs() []uuid.UUID {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uuid.UUID, len(b.order))
	copy(ids, b.order)

	return ids
}

func (b *Batch) Get(id uuid.UUID) (Transaction, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tx, ok := b.items[id]
	if !ok {
		return Transaction{}, false
	}

	return tx.clone(), true
}

func (b *Batch) SetStatus(id uuid.UUID, s Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, ok := b.items[id]
	if !ok {
		return ErrUnknownTransaction
	}

	tx.Status = s

	return nil
}

// Transition moves a transaction from a status of kind from to to, as
// one step, and returns a copy of it as it was before. It fails with
// ErrStatusChanged when the transaction is in any other state, so only
// one caller can claim it.
func (b *Batch) Transition(id uuid.UUID, from StatusKind, to Status) (Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, ok := b.items[id]
	if !ok {
		return Transaction{}, ErrUnknownTransaction
	}

	if kind := tx.Status.Kind(); kind != from {
		return tx.clone(), fmt.Errorf("%w: status is %s, want %s", ErrStatusChanged, kind, from)
	}

	before := tx.clone()
	tx.Status = to

	return before, nil
}

// SetFields replaces the extracted values and field errors of a transaction.
func (b *Batch) SetFields(id uuid.UUID, f Fields, fieldErrors map[Field]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, ok := b.items[id]
	if !ok {
		return ErrUnknownTransaction
	}

	tx.Fields = f
	tx.FieldErrors = fieldErrors

	return nil
}

// Snapshot returns copies of all transactions in statement order.
func (b *Batch) Snapshot() []Transaction {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Transaction, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.items[id].clone())
	}

	return out
}

// Count returns how many transactions currently have the given kind.
func (b *Batch) Count(kind StatusKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0

	for _, tx := range b.items {
		if tx.Status.Kind() == kind {
			n++
		}
	}

	return n
}
