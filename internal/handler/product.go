package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/catalog-service/internal/domain/product"
)

// CreateProduct handles POST /api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := h.decodeProduct(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	params, err := h.validateCreate(body)
	if err != nil {
		fail(w, r, err)
		return
	}

	v, err := h.products.Create(r.Context(), params)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+v.Code)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { h.encodeView(e, *v) })
}

// GetProduct handles GET /api/products/{code}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	v, ok, err := h.products.Get(r.Context(), chi.URLParam(r, "code"))
	switch {
	case err != nil:
		fail(w, r, err)
	case !ok:
		fail(w, r, product.ErrNotFound)
	default:
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeView(e, *v) })
	}
}

// UpdateProduct handles PUT /api/products/{code}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := h.decodeProduct(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	params, err := h.validateUpdate(body)
	if err != nil {
		fail(w, r, err)
		return
	}

	v, err := h.products.Update(r.Context(), chi.URLParam(r, "code"), params)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeView(e, *v) })
}

// DeleteProduct handles DELETE /api/products/{code}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeMessage(msgProductDeleted))
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	page, err := h.products.List(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodePage(e, page) })
}
