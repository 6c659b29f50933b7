package http

import (
	"net/http"

	"github.com/atinyakov/packcart/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the cart API.
//
// Routes:
//
//	POST /api/user/register  → authHandler.Register
//	GET  /api/product/list   → productHandler.List
//	POST /api/cart/get       → cartHandler.Get       (bearer)
//	POST /api/cart/add       → cartHandler.Add       (bearer)
//	POST /api/cart/update    → cartHandler.Update    (bearer)
//	POST /api/cart/merge     → cartHandler.Merge     (bearer)
//	GET  /api/wishlist       → wishlistHandler.List  (bearer)
//	POST /api/wishlist/add   → wishlistHandler.Add   (bearer)
//	POST /api/wishlist/remove → wishlistHandler.Remove (bearer)
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json") rejects non-JSON bodies
//  2. Recoverer turns handler panics into 500s
//  3. WithRequestLogging(logger) logs every request
func NewRouter(
	authHandler *AuthHandler,
	cartHandler *CartHandler,
	wishlistHandler *WishlistHandler,
	productHandler *ProductHandler,
	tokens middleware.TokenResolver,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(chiMiddleware.Recoverer)

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/user/register", authHandler.Register)
		r.Get("/product/list", productHandler.List)

		// Protected group: requires a bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(tokens))

			r.Route("/cart", func(r chi.Router) {
				r.Post("/get", cartHandler.Get)
				r.Post("/add", cartHandler.Add)
				r.Post("/update", cartHandler.Update)
				r.Post("/merge", cartHandler.Merge)
			})

			r.Get("/wishlist", wishlistHandler.List)
			r.Post("/wishlist/add", wishlistHandler.Add)
			r.Post("/wishlist/remove", wishlistHandler.Remove)
		})
	})

	return r
}
