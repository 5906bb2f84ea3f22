package imports

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/category"
	catHandler "github.com/MrJamesThe3rd/tally/internal/http/category"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/review"
	"github.com/MrJamesThe3rd/tally/internal/session"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

const maxFormMemory = 10 << 20

type Handler struct {
	svc *session.Service
}

func NewHandler(svc *session.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.upload)
	r.Get("/", h.list)
	r.Get("/banks", h.banks)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.dismiss)
		r.Put("/mappings", h.assign)
		r.Post("/mappings/category", h.createCategory)
		r.Post("/run", h.run)
		r.Post("/cancel", h.cancel)
		r.Get("/progress", h.progress)
		r.Get("/review", h.pending)
		r.Post("/review/{txID}", h.resolve)
		r.Post("/review/{txID}/skip", h.skip)
	})
}

type bankResponse struct {
	Bank       string   `json:"bank"`
	Label      string   `json:"label"`
	Extensions []string `json:"extensions"`
	MaxSize    int64    `json:"max_size"`
}

func (h *Handler) banks(w http.ResponseWriter, r *http.Request) {
	opts := importer.Banks()
	resp := make([]bankResponse, len(opts))

	for i, o := range opts {
		resp[i] = bankResponse{Bank: string(o.Bank), Label: o.Label, Extensions: o.Extensions, MaxSize: o.MaxSize}
	}

	render.JSON(w, r, http.StatusOK, resp)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	bank := importer.Bank(r.FormValue("bank"))
	if bank == "" {
		http.Error(w, "bank field is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	sess, err := h.svc.Open(r.Context(), bank, header.Filename, header.Size, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusCreated, toSessionResponse(sess.Snapshot(), true))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sessions := h.svc.List()
	resp := make([]sessionResponse, len(sessions))

	for i, sess := range sessions {
		resp[i] = toSessionResponse(sess.Snapshot(), false)
	}

	render.JSON(w, r, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, http.StatusOK, toSessionResponse(sess.Snapshot(), true))
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Dismiss(id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type mappingRequest struct {
	Alias      string    `json:"alias"`
	CategoryID uuid.UUID `json:"category_id"`
	Remember   bool      `json:"remember"`
}

type assignRequest struct {
	Mappings []mappingRequest `json:"mappings"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, m := range req.Mappings {
		if m.CategoryID == uuid.Nil {
			http.Error(w, "category_id is required for "+m.Alias, http.StatusBadRequest)
			return
		}

		if err := sess.AssignCategory(m.Alias, m.CategoryID, m.Remember); err != nil {
			writeError(w, r, err)
			return
		}
	}

	render.JSON(w, r, http.StatusOK, toSessionResponse(sess.Snapshot(), false))
}

type createCategoryRequest struct {
	Alias string `json:"alias"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.CreateCategoryForAlias(r.Context(), sess, req.Alias, req.Name, req.Color)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusCreated, catHandler.ToResponse(c))
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	run, err := sess.StartImport(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusAccepted, run.Progress())
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if !sess.Cancel() {
		http.Error(w, "no import run is in progress", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	resolver, err := sess.Resolver()
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, reviewResponse{
		Remaining:    resolver.Remaining(),
		Transactions: toTransactionList(resolver.Pending()),
	})
}

type decisionRequest struct {
	CategoryID    uuid.UUID        `json:"category_id"`
	Description   *string          `json:"description,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Timestamp     *time.Time       `json:"timestamp,omitempty"`
	RememberAlias bool             `json:"remember_alias"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	resolver, txID, ok := h.reviewTarget(w, r)
	if !ok {
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := resolver.Resolve(r.Context(), txID, review.Decision{
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		Amount:        req.Amount,
		Timestamp:     req.Timestamp,
		RememberAlias: req.RememberAlias,
	})

	switch {
	case err == nil:
		render.JSON(w, r, http.StatusOK, toTransactionResponse(tx))
	case errors.Is(err, review.ErrInvalidFields):
		render.JSON(w, r, http.StatusUnprocessableEntity, toTransactionResponse(tx))
	case errors.Is(err, review.ErrCategoryRequired),
		errors.Is(err, review.ErrNotReviewable),
		errors.Is(err, session.ErrRunInProgress),
		errors.Is(err, statement.ErrUnknownTransaction):
		writeError(w, r, err)
	default:
		// The write failed; the transaction stays in review with the new reason.
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Str("transaction_id", txID.String()).Msg("review import failed")
		render.JSON(w, r, http.StatusBadGateway, toTransactionResponse(tx))
	}
}

func (h *Handler) skip(w http.ResponseWriter, r *http.Request) {
	resolver, txID, ok := h.reviewTarget(w, r)
	if !ok {
		return
	}

	tx, err := resolver.Skip(txID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, toTransactionResponse(tx))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, false
	}

	sess, err := h.svc.Get(id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	return sess, true
}

func (h *Handler) reviewTarget(w http.ResponseWriter, r *http.Request) (*review.Resolver, uuid.UUID, bool) {
	sess, ok := h.session(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}

	txID, err := uuid.Parse(chi.URLParam(r, "txID"))
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return nil, uuid.Nil, false
	}

	resolver, err := sess.Resolver()
	if err != nil {
		writeError(w, r, err)
		return nil, uuid.Nil, false
	}

	return resolver, txID, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, "import session not found", http.StatusNotFound)
	case errors.Is(err, statement.ErrUnknownTransaction):
		http.Error(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, session.ErrRunInProgress),
		errors.Is(err, session.ErrNoRun),
		errors.Is(err, review.ErrNotReviewable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, importer.ErrUnknownBank),
		errors.Is(err, importer.ErrInvalidFile),
		errors.Is(err, review.ErrCategoryRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, statement.ErrNoTransactions):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, category.ErrInvalidParams),
		errors.Is(err, category.ErrAliasTaken),
		errors.Is(err, category.ErrNotFound):
		catHandler.WriteError(w, r, err)
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("import request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
