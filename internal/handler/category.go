package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	name, err := decodeCategory(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.categories.Create(r.Context(), name)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCategory(e, c) })
}

// GetCategory handles GET /api/categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := categoryID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.categories.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCategory(e, c) })
}

// ListCategoryProducts handles GET /api/categories/{id}/products.
func (h *Handler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, err := categoryID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if _, err := h.categories.Get(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	page, err := h.products.ListByCategory(r.Context(), id, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodePage(e, page) })
}

func categoryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		var ve ValidationError
		ve.Add("id", "Category ID must be a positive number")
		return 0, &ve
	}
	return id, nil
}
