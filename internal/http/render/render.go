package render

import (
	"encoding/json"
	"net/http"

	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/paging"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// Page is the wire shape of a paged list.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Take  int `json:"take"`
}

// NewPage converts every item of res with conv.
func NewPage[S, T any](res *paging.Result[S], conv func(S) T) Page[T] {
	items := make([]T, len(res.Items))
	for i, item := range res.Items {
		items[i] = conv(item)
	}

	return Page[T]{Items: items, Total: res.Total, Page: res.Page, Take: res.Take}
}
