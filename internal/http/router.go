package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cartshare/pkg/logger"
)

type RouterDeps struct {
	Cart    *CartHandler
	Catalog *CatalogHandler
	Roles   *RolesHandler
	Auth    *AuthMiddleware
	Logg    *logger.Logger
	Timeout time.Duration
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogMiddleware(deps.Logg))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.Timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/catalog", deps.Catalog.ListProducts)

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Handler)

		r.Get("/api/carts", deps.Cart.ListCarts)
		r.Post("/api/carts/{cartID}/select", deps.Cart.SelectCart)

		r.Get("/api/cart", deps.Cart.GetCart)
		r.Post("/api/cart/items", deps.Cart.AddItem)
		r.Put("/api/cart/items/{itemID}", deps.Cart.UpdateQuantity)
		r.Delete("/api/cart/items/{itemID}", deps.Cart.RemoveItem)
		r.Delete("/api/cart/items", deps.Cart.ClearCart)
		r.Post("/api/cart/checkout", deps.Cart.Checkout)
		r.Put("/api/cart/members", deps.Cart.SetMembers)
		r.Post("/api/cart/share", deps.Cart.Share)

		r.Get("/api/users", deps.Roles.ListUsers)
		r.Put("/api/users/{uid}/role", deps.Roles.UpdateRole)

		r.Post("/api/session/logout", deps.Cart.Logout)
	})

	return r
}
