package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

type parsedTransaction struct {
	ID            uuid.UUID                  `json:"id"`
	Description   string                     `json:"description"`
	CategoryAlias string                     `json:"category_alias"`
	Amount        decimal.Decimal            `json:"amount"`
	Timestamp     *time.Time                 `json:"timestamp"`
	FieldErrors   map[statement.Field]string `json:"field_errors,omitempty"`
}

func newParseCommand() *cobra.Command {
	var (
		bank     string
		timezone string
	)

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the transactions extracted from a statement as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("loading timezone: %w", err)
			}

			return runParse(cmd.OutOrStdout(), importer.NewService(loc), importer.Bank(bank), args[0])
		},
	}

	cmd.Flags().StringVar(&bank, "bank", string(importer.BankVB), "bank the statement comes from (vb, cgd)")
	cmd.Flags().StringVar(&timezone, "timezone", "Europe/Chisinau", "timezone statement dates are written in")

	return cmd
}

func runParse(out io.Writer, svc *importer.Service, bank importer.Bank, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading statement: %w", err)
	}

	if err := importer.ValidateFile(bank, filepath.Base(path), info.Size(), 0); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	txs, err := svc.Import(bank, f)
	if err != nil {
		return err
	}

	parsed := make([]parsedTransaction, len(txs))
	for i, tx := range txs {
		parsed[i] = parsedTransaction{
			ID:            tx.ID,
			Description:   tx.Fields.Description,
			CategoryAlias: tx.Fields.CategoryAlias,
			Amount:        tx.Fields.Amount,
			FieldErrors:   tx.FieldErrors,
		}

		if !tx.Fields.Timestamp.IsZero() {
			parsed[i].Timestamp = new(tx.Fields.Timestamp)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(parsed)
}
