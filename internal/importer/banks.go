package importer

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

const defaultMaxSize = 5 << 20

// BankOption describes the exports a bank produces.
type BankOption struct {
	Bank       Bank
	Label      string
	Extensions []string
	MaxSize    int64
}

var bankOptions = []BankOption{
	{Bank: BankVB, Label: "Victoriabank", Extensions: []string{".html", ".htm"}, MaxSize: defaultMaxSize},
	{Bank: BankCGD, Label: "Caixa Geral de Depósitos", Extensions: []string{".csv"}, MaxSize: defaultMaxSize},
}

// Banks lists the supported banks in display order.
func Banks() []BankOption {
	out := make([]BankOption, len(bankOptions))
	for i, o := range bankOptions {
		o.Extensions = slices.Clone(o.Extensions)
		out[i] = o
	}

	return out
}

func LookupBank(bank Bank) (BankOption, bool) {
	for _, o := range bankOptions {
		if o.Bank == bank {
			return o, true
		}
	}

	return BankOption{}, false
}

// ValidateFile checks an upload's name and size against the bank's limits
// before any parsing happens. maxSize, when positive, tightens the bank's
// own limit.
func ValidateFile(bank Bank, name string, size, maxSize int64) error {
	opt, ok := LookupBank(bank)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBank, bank)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(opt.Extensions, ext) {
		return fmt.Errorf("%w: %s exports must be %s", ErrInvalidFile, opt.Label, strings.Join(opt.Extensions, " or "))
	}

	limit := opt.MaxSize
	if maxSize > 0 && maxSize < limit {
		limit = maxSize
	}

	if size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}

	if size > limit {
		return fmt.Errorf("%w: file is %d bytes, limit is %d", ErrInvalidFile, size, limit)
	}

	return nil
}
