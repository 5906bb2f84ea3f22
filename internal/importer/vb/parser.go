package vb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	enc "github.com/MrJamesThe3rd/tally/internal/encoding"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

const (
	classMonth = "month-delimiter"
	classDay   = "day-header"
	classItem  = "history-item"

	selDescriptionLink = ".history-item-description a"
	selDescription     = ".history-item-description"
	selState           = ".history-item-state"
	selTime            = ".history-item-time"
	selTotalAmount     = ".history-item-amount.total .amount"
	selTxAmount        = ".history-item-amount.transaction .amount"
)

var errNotFound = errors.New("not found")

// Parser reads the HTML operations history exported by Victoriabank
// internet banking.
//
// The export lists top-level blocks under .operations. A month-delimiter
// block opens a month; the blocks after it hold day headers followed by
// history items, either nested in a day block or as flat siblings.
type Parser struct {
	loc   *time.Location
	newID func() uuid.UUID
}

type Option func(*Parser)

// WithLocation sets the zone entry times are read in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
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

// monthGroup is one month delimiter and the blocks that follow it.
type monthGroup struct {
	month  string
	blocks []*goquery.Selection
}

func (p *Parser) Parse(r io.Reader) ([]*statement.Transaction, error) {
	utf8r, err := decodeHTML(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(sanitize(utf8r))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	ids := statement.NewIDGenerator(p.newID)

	var txs []*statement.Transaction

	for _, g := range groupByMonth(doc.Find(".operations > div")) {
		var day string

		for _, block := range g.blocks {
			walk(block, &day, func(item *goquery.Selection, day string) {
				txs = append(txs, p.extract(ids.Next(), item, g.month, day))
			})
		}
	}

	if len(txs) == 0 {
		return nil, statement.ErrNoTransactions
	}

	return txs, nil
}

// decodeHTML returns the export as UTF-8. Bytes that are not UTF-8 are
// decoded with the charset the page declares in its <meta>, then by
// detection over the whole document. Windows-1252 is what the prescan
// reports when nothing is declared, so it is left to detection too.
func decodeHTML(r io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	if !utf8.Valid(data) {
		e, name, _ := charset.DetermineEncoding(data, "text/html")
		if name != "utf-8" && name != "windows-1252" {
			return transform.NewReader(bytes.NewReader(data), e.NewDecoder()), nil
		}
	}

	return enc.Decode(data, charmap.Windows1251), nil
}

// groupByMonth partitions the top-level blocks. Blocks before the first
// delimiter have no month and are dropped.
func groupByMonth(blocks *goquery.Selection) []monthGroup {
	var groups []monthGroup

	blocks.Each(func(_ int, s *goquery.Selection) {
		if s.HasClass(classMonth) {
			groups = append(groups, monthGroup{month: text(s)})
			return
		}

		if len(groups) == 0 {
			return
		}

		last := &groups[len(groups)-1]
		last.blocks = append(last.blocks, s)
	})

	return groups
}

// walk visits s and its descendants in document order. A day header
// updates the current day; a history item is handed to visit along with
// it. Items are not descended into.
func walk(s *goquery.Selection, day *string, visit func(item *goquery.Selection, day string)) {
	switch {
	case s.HasClass(classDay):
		*day = text(s)
	case s.HasClass(classItem):
		visit(s, *day)
	default:
		s.Children().Each(func(_ int, c *goquery.Selection) {
			walk(c, day, visit)
		})
	}
}

// extract runs the four field extractors independently, recording each
// failure under its field instead of aborting the entry.
func (p *Parser) extract(id uuid.UUID, item *goquery.Selection, month, day string) *statement.Transaction {
	tx := &statement.Transaction{ID: id, Status: statement.Idle{}}
	fieldErrs := map[statement.Field]string{}

	if v, err := extractDescription(item); err != nil {
		fieldErrs[statement.FieldDescription] = err.Error()
	} else {
		tx.Fields.Description = v
	}

	if v, err := extractCategory(item); err != nil {
		fieldErrs[statement.FieldCategory] = err.Error()
	} else {
		tx.Fields.CategoryAlias = v
	}

	if v, err := extractAmount(item); err != nil {
		fieldErrs[statement.FieldAmount] = err.Error()
	} else {
		tx.Fields.Amount = v
	}

	if v, err := p.extractTimestamp(item, month, day); err != nil {
		fieldErrs[statement.FieldTimestamp] = err.Error()
	} else {
		tx.Fields.Timestamp = v
	}

	if len(fieldErrs) > 0 {
		tx.FieldErrors = fieldErrs
	}

	return tx
}

func extractDescription(item *goquery.Selection) (string, error) {
	if v := text(item.Find(selDescriptionLink).First()); v != "" {
		return v, nil
	}

	if v := text(item.Find(selDescription).First()); v != "" {
		return v, nil
	}

	return "", fmt.Errorf("description %w", errNotFound)
}

func extractCategory(item *goquery.Selection) (string, error) {
	v, ok := item.Find(selState).First().Attr("data-category")
	v = strings.TrimSpace(v)

	if !ok || v == "" {
		return "", fmt.Errorf("category %w", errNotFound)
	}

	return v, nil
}

// extractAmount prefers the total amount (which includes fees) over the
// transaction amount. A missing amount is an error, never zero.
func extractAmount(item *goquery.Selection) (decimal.Decimal, error) {
	raw := text(item.Find(selTotalAmount).First())
	if raw == "" {
		raw = text(item.Find(selTxAmount).First())
	}

	if raw == "" {
		return decimal.Zero, fmt.Errorf("amount %w: neither total nor transaction amount present", errNotFound)
	}

	return parseAmount(raw)
}

// extractTimestamp uses a day header inside the item when there is one,
// otherwise the last day header seen.
func (p *Parser) extractTimestamp(item *goquery.Selection, month, day string) (time.Time, error) {
	if inner := text(item.Find("." + classDay).First()); inner != "" {
		day = inner
	}

	if day == "" {
		return time.Time{}, fmt.Errorf("day %w", errNotFound)
	}

	clock := text(item.Find(selTime).First())
	if clock == "" {
		return time.Time{}, fmt.Errorf("time %w", errNotFound)
	}

	return buildTimestamp(month, day, clock, p.loc)
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
