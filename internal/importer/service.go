package importer

import (
	"fmt"
	"io"
	"time"

	"github.com/MrJamesThe3rd/tally/internal/importer/cgd"
	"github.com/MrJamesThe3rd/tally/internal/importer/vb"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

type Service struct {
	parsers map[Bank]Parser
}

// NewService wires the bundled parsers. Statement dates are read in loc.
func NewService(loc *time.Location) *Service {
	return &Service{
		parsers: map[Bank]Parser{
			BankVB:  vb.NewParser(vb.WithLocation(loc)),
			BankCGD: cgd.NewParser(cgd.WithLocation(loc)),
		},
	}
}

// NewServiceWith uses the given parsers instead of the bundled ones.
func NewServiceWith(parsers map[Bank]Parser) *Service {
	return &Service{parsers: parsers}
}

func (s *Service) Import(bank Bank, r io.Reader) ([]*statement.Transaction, error) {
	parser, ok := s.parsers[bank]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBank, bank)
	}

	txs, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s statement: %w", bank, err)
	}

	return txs, nil
}
