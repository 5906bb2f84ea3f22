package cgd

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountColumns is how an export carries the amount.
type amountColumns int

const (
	// signedAmount is one column holding "-10,00".
	signedAmount amountColumns = iota
	// debitCredit is a pair of unsigned "Débito"/"Crédito" columns.
	debitCredit
)

// layout names the header cells of one CGD export format.
type layout struct {
	name   string
	date   string
	desc   string
	amount amountColumns
	signed string
	debit  string
	credit string
}

// layouts are tried in order. Card exports go first: their headers are
// the least specific.
var layouts = []layout{
	{name: "cartão", date: "Data", desc: "Descrição", amount: debitCredit, debit: "Débito", credit: "Crédito"},
	{name: "extrato", date: "Data mov.", desc: "Descrição", amount: signedAmount, signed: "Movimento"},
	{name: "conta", date: "Data mov.", desc: "Descrição", amount: signedAmount, signed: "Montante"},
}

func layoutNames() string {
	names := make([]string, len(layouts))
	for i, l := range layouts {
		names[i] = l.name
	}

	return strings.Join(names, ", ")
}

func (l layout) header() []string {
	if l.amount == debitCredit {
		return []string{l.date, l.desc, l.debit, l.credit}
	}

	return []string{l.date, l.desc, l.signed}
}

// columns is a layout bound to the positions of its header row.
type columns struct {
	layout

	dateIdx   int
	descIdx   int
	signedIdx int
	debitIdx  int
	creditIdx int
}

// bind matches l against a candidate header row. Cells are trimmed; the
// first occurrence of a repeated name wins.
func (l layout) bind(row []string) (columns, bool) {
	pos := make(map[string]int, len(row))

	for i, cell := range row {
		name := strings.TrimSpace(cell)
		if _, seen := pos[name]; name != "" && !seen {
			pos[name] = i
		}
	}

	for _, name := range l.header() {
		if _, ok := pos[name]; !ok {
			return columns{}, false
		}
	}

	c := columns{layout: l, dateIdx: pos[l.date], descIdx: pos[l.desc], signedIdx: -1, debitIdx: -1, creditIdx: -1}
	if l.amount == debitCredit {
		c.debitIdx, c.creditIdx = pos[l.debit], pos[l.credit]
	} else {
		c.signedIdx = pos[l.signed]
	}

	return c, true
}

func (c columns) description(row []string) string {
	return cellValue(row, c.descIdx)
}

func (c columns) date(row []string) string {
	return cellValue(row, c.dateIdx)
}

// amount reads the signed amount of row. Debits are negative; the debit
// cell wins when both are filled.
func (c columns) amount(row []string) (decimal.Decimal, error) {
	if c.layout.amount == signedAmount {
		s := cellValue(row, c.signedIdx)
		if s == "" {
			return decimal.Zero, fmt.Errorf("amount not found")
		}

		d, err := parseEuropeanAmount(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q", s)
		}

		return d, nil
	}

	if s := cellValue(row, c.debitIdx); s != "" {
		d, err := parseEuropeanAmount(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid debit %q", s)
		}

		return d.Abs().Neg(), nil
	}

	if s := cellValue(row, c.creditIdx); s != "" {
		d, err := parseEuropeanAmount(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid credit %q", s)
		}

		return d.Abs(), nil
	}

	return decimal.Zero, fmt.Errorf("amount not found")
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
