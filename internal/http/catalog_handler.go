package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cartshare/internal/domain"
	"cartshare/internal/repository"
	"cartshare/pkg/logger"
)

const maxCatalogPageSize = 100

type CatalogHandler struct {
	products repository.ProductRepository
	pageSize int
	logg     *logger.Logger
	timeout  time.Duration
}

func NewCatalogHandler(products repository.ProductRepository, pageSize int, logg *logger.Logger, timeout time.Duration) *CatalogHandler {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &CatalogHandler{
		products: products,
		pageSize: pageSize,
		logg:     logg,
		timeout:  timeout,
	}
}

type CatalogPageDTO struct {
	Products []domain.Product `json:"products"`
	// NextAfter is the cursor for the next page; empty when this is the
	// last page.
	NextAfter string `json:"next_after,omitempty"`
}

// ListProducts serves one catalog page ordered by name. Clients pass the
// previous page's next_after cursor to continue.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	after := r.URL.Query().Get("after")
	limit := h.pageSize
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		if parsed > maxCatalogPageSize {
			parsed = maxCatalogPageSize
		}
		limit = parsed
	}

	products, err := h.products.ListPage(ctx, after, limit)
	if err != nil {
		h.logg.Error(r.Context(), "failed to list products", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}

	page := CatalogPageDTO{Products: products}
	if page.Products == nil {
		page.Products = []domain.Product{}
	}
	if len(products) == limit {
		page.NextAfter = products[len(products)-1].Name
	}

	respondJSON(w, http.StatusOK, page)
}
