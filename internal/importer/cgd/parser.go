package cgd

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	enc "github.com/MrJamesThe3rd/tally/internal/encoding"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

const dateLayout = "02-01-2006"

// Parser reads CGD bank CSV exports and produces extracted transactions.
// It auto-detects which CGD format (conta, extrato, cartão) is being used
// by matching column headers against known layouts.
//
// CGD exports carry no category column, so the description doubles as the
// category alias: aliases then map merchants onto categories.
type Parser struct {
	loc   *time.Location
	newID func() uuid.UUID
}

type Option func(*Parser)

// WithLocation sets the zone dates are interpreted in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) { p.loc = loc }
}

func WithIDFunc(fn func() uuid.UUID) Option {
	return func(p *Parser) { p.newID = fn }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{loc: time.UTC}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Parser) Parse(r io.Reader) ([]*statement.Transaction, error) {
	utf8r, err := enc.NewUTF8Reader(r, charmap.Windows1252)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cols, headerIdx, ok := detectLayout(rows)
	if !ok {
		return nil, fmt.Errorf("%w: no matching CGD format found: expected columns for %s",
			statement.ErrNoTransactions, layoutNames())
	}

	txs := p.parseRows(cols, rows[headerIdx+1:])
	if len(txs) == 0 {
		return nil, statement.ErrNoTransactions
	}

	return txs, nil
}

// detectLayout finds the first row that is the header of a known layout.
func detectLayout(rows [][]string) (columns, int, bool) {
	for rowIdx, row := range rows {
		for _, l := range layouts {
			if cols, ok := l.bind(row); ok {
				return cols, rowIdx, true
			}
		}
	}

	return columns{}, 0, false
}

// parseRows extracts one transaction per entry row. A row is an entry when
// its date parses, or when it has both a description and an amount; other
// rows (blank lines, page footers, totals) are skipped.
func (p *Parser) parseRows(cols columns, rows [][]string) []*statement.Transaction {
	ids := statement.NewIDGenerator(p.newID)

	var txs []*statement.Transaction

	for _, row := range rows {
		desc := cols.description(row)
		date, dateErr := p.parseDate(cols.date(row))
		amount, amountErr := cols.amount(row)

		if dateErr != nil && (desc == "" || amountErr != nil) {
			continue
		}

		tx := &statement.Transaction{
			ID:     ids.Next(),
			Status: statement.Idle{},
			Fields: statement.Fields{
				Description:   desc,
				CategoryAlias: desc,
				Amount:        amount,
				Timestamp:     date,
			},
		}

		fieldErrs := map[statement.Field]string{}
		if desc == "" {
			fieldErrs[statement.FieldDescription] = "description is empty"
			fieldErrs[statement.FieldCategory] = "category alias is empty"
		}

		if amountErr != nil {
			fieldErrs[statement.FieldAmount] = amountErr.Error()
		}

		if dateErr != nil {
			fieldErrs[statement.FieldTimestamp] = dateErr.Error()
		}

		if len(fieldErrs) > 0 {
			tx.FieldErrors = fieldErrs
		}

		txs = append(txs, tx)
	}

	return txs
}

func (p *Parser) parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}

	t, err := time.ParseInLocation(dateLayout, s, p.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}

	return t, nil
}
