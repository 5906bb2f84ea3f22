package category

import "errors"

var (
	ErrNotFound      = errors.New("category not found")
	ErrInvalidParams = errors.New("invalid category")
	ErrAliasTaken    = errors.New("alias already belongs to another category")
	ErrInUse         = errors.New("category is used by transactions")
)
