package transaction

import "errors"

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrInvalidParams = errors.New("invalid transaction")
)
