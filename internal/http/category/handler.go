package category

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/paging"
)

type Handler struct {
	svc *category.Service
}

func NewHandler(svc *category.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/aliases", h.addAlias)
}

type Response struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	Aliases   []string  `json:"aliases"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse is shared with the import handlers, which return categories
// created during mapping.
func ToResponse(c *category.Category) Response {
	aliases := c.Aliases
	if aliases == nil {
		aliases = []string{}
	}

	return Response{
		ID:        c.ID,
		Name:      c.Name,
		Color:     c.Color,
		Aliases:   aliases,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type createCategoryRequest struct {
	Name    string   `json:"name"`
	Color   string   `json:"color"`
	Aliases []string `json:"aliases"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.Create(r.Context(), category.CreateParams{Name: req.Name, Color: req.Color, Aliases: req.Aliases})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusCreated, ToResponse(c))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := h.svc.List(r.Context(), category.ListFilter{
		Search: q.Get("search"),
		Query:  paging.FromValues(q),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, render.NewPage(res, ToResponse))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, ToResponse(c))
}

type updateCategoryRequest struct {
	Name    *string   `json:"name,omitempty"`
	Color   *string   `json:"color,omitempty"`
	Aliases *[]string `json:"aliases,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.Update(r.Context(), id, category.UpdateParams{Name: req.Name, Color: req.Color, Aliases: req.Aliases})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, ToResponse(c))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type addAliasRequest struct {
	Alias string `json:"alias"`
}

func (h *Handler) addAlias(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req addAliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.AddAlias(r.Context(), id, req.Alias)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	render.JSON(w, r, http.StatusOK, ToResponse(c))
}

// WriteError maps category errors to status codes.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, category.ErrNotFound):
		http.Error(w, "category not found", http.StatusNotFound)
	case errors.Is(err, category.ErrInvalidParams):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, category.ErrAliasTaken), errors.Is(err, category.ErrInUse):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("category request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
