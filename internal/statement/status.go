package statement

import "github.com/MrJamesThe3rd/tally/internal/transaction"

// StatusKind is the wire name of a Status variant.
type StatusKind string

const (
	KindIdle    StatusKind = "idle"
	KindLoading StatusKind = "loading"
	KindDone    StatusKind = "done"
	KindSkipped StatusKind = "skipped"
	KindError   StatusKind = "error"
)

// Status is the per-transaction import state. The set of variants is
// closed: Idle, Loading, Done, Skipped and Failed.
type Status interface {
	Kind() StatusKind
	status()
}

type (
	Idle    struct{}
	Loading struct{}
	Skipped struct{}

	// Done carries the record the transaction was persisted as.
	Done struct {
		Record *transaction.Transaction
	}

	// Failed carries a human-readable reason.
	Failed struct {
		Reason string
	}
)

func (Idle) Kind() StatusKind    { return KindIdle }
func (Loading) Kind() StatusKind { return KindLoading }
func (Done) Kind() StatusKind    { return KindDone }
func (Skipped) Kind() StatusKind { return KindSkipped }
func (Failed) Kind() StatusKind  { return KindError }

func (Idle) status()    {}
func (Loading) status() {}
func (Done) status()    {}
func (Skipped) status() {}
func (Failed) status()  {}
