package importer

import (
	"errors"
	"io"

	"github.com/MrJamesThe3rd/tally/internal/statement"
)

type Bank string

const (
	BankVB  Bank = "vb"
	BankCGD Bank = "cgd"
)

var (
	ErrUnknownBank = errors.New("unknown bank")
	ErrInvalidFile = errors.New("invalid statement file")
)

// Parser turns one bank export into extracted transactions. It fails as a
// whole only when no entry can be identified (statement.ErrNoTransactions)
// or the input cannot be read.
type Parser interface {
	Parse(r io.Reader) ([]*statement.Transaction, error)
}
