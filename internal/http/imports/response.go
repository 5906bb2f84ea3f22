package imports

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/importrun"
	"github.com/MrJamesThe3rd/tally/internal/session"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

type sessionResponse struct {
	ID           uuid.UUID             `json:"id"`
	Bank         string                `json:"bank"`
	FileName     string                `json:"file_name"`
	CreatedAt    time.Time             `json:"created_at"`
	Stage        session.Stage         `json:"stage"`
	Progress     importrun.Progress    `json:"progress"`
	Mappings     []mappingResponse     `json:"mappings"`
	Transactions []transactionResponse `json:"transactions,omitempty"`
}

type mappingResponse struct {
	Alias      string              `json:"alias"`
	CategoryID *uuid.UUID          `json:"category_id"`
	Remember   bool                `json:"remember"`
	Suggestion *suggestionResponse `json:"suggestion,omitempty"`
}

type suggestionResponse struct {
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Alias        string    `json:"alias"`
}

type transactionResponse struct {
	ID            uuid.UUID                  `json:"id"`
	Description   string                     `json:"description"`
	CategoryAlias string                     `json:"category_alias"`
	Amount        decimal.Decimal            `json:"amount"`
	Timestamp     *time.Time                 `json:"timestamp"`
	FieldErrors   map[statement.Field]string `json:"field_errors,omitempty"`
	Status        statement.StatusKind       `json:"status"`
	Reason        string                     `json:"reason,omitempty"`
	RecordID      *uuid.UUID                 `json:"record_id,omitempty"`
}

type reviewResponse struct {
	Remaining    int                   `json:"remaining"`
	Transactions []transactionResponse `json:"transactions"`
}

func toSessionResponse(v session.View, withTransactions bool) sessionResponse {
	resp := sessionResponse{
		ID:        v.ID,
		Bank:      string(v.Bank),
		FileName:  v.FileName,
		CreatedAt: v.CreatedAt,
		Stage:     v.Stage,
		Progress:  v.Progress,
		Mappings:  make([]mappingResponse, len(v.Mappings)),
	}

	for i, m := range v.Mappings {
		resp.Mappings[i] = mappingResponse{Alias: m.Alias, CategoryID: m.CategoryID, Remember: m.Remember}
		if m.Suggestion != nil {
			resp.Mappings[i].Suggestion = &suggestionResponse{
				CategoryID:   m.Suggestion.Category.ID,
				CategoryName: m.Suggestion.Category.Name,
				Alias:        m.Suggestion.Alias,
			}
		}
	}

	if withTransactions {
		resp.Transactions = toTransactionList(v.Transactions)
	}

	return resp
}

func toTransactionResponse(tx statement.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            tx.ID,
		Description:   tx.Fields.Description,
		CategoryAlias: tx.Fields.CategoryAlias,
		Amount:        tx.Fields.Amount,
		FieldErrors:   tx.FieldErrors,
		Status:        tx.Status.Kind(),
	}

	if !tx.Fields.Timestamp.IsZero() {
		resp.Timestamp = new(tx.Fields.Timestamp)
	}

	switch s := tx.Status.(type) {
	case statement.Failed:
		resp.Reason = s.Reason
	case statement.Done:
		if s.Record != nil {
			resp.RecordID = new(s.Record.ID)
		}
	}

	return resp
}

func toTransactionList(txs []statement.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResponse(tx)
	}

	return out
}
