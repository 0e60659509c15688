package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/cart"
	"storefront-service/internal/domain"
	"storefront-service/internal/events"
	"storefront-service/internal/store"
	"storefront-service/internal/upstream/woocommerce"
)

// Commerce is the commerce backend (products, categories, orders).
type Commerce interface {
	ListProducts(ctx context.Context, q woocommerce.ProductQuery) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.CategorySummary, error)
	ListOrders(ctx context.Context) ([]json.RawMessage, error)
	CreateOrder(ctx context.Context, order any) (json.RawMessage, error)
}

// Content is the headless CMS holding reviews, addresses and user details.
type Content interface {
	ListApprovedReviews(ctx context.Context, productID string, limit int) ([]domain.Review, error)
	UpsertReview(ctx context.Context, r domain.Review) (domain.Review, error)
	ListAddresses(ctx context.Context, userID string) ([]domain.Address, error)
	CreateAddress(ctx context.Context, a domain.Address) (domain.Address, error)
	SaveUserDetails(ctx context.Context, phone, name, address string) (domain.UserProfile, error)
}

// PhoneAuth is the identity provider's phone sign-in flow.
type PhoneAuth interface {
	SendVerificationCode(ctx context.Context, phone, recaptchaToken string) (string, error)
	SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (domain.AuthSession, error)
}

type Geocoder interface {
	Search(ctx context.Context, query string) ([]domain.Location, error)
	Reverse(ctx context.Context, lat, lng float64) (domain.Location, error)
}

// SessionTracker is notified when sessions sign in or out so their tokens can be refreshed.
type SessionTracker interface {
	Track(sessionID string)
	Untrack(sessionID string)
}

type nopTracker struct{}

func (nopTracker) Track(string)   {}
func (nopTracker) Untrack(string) {}

// Deps are the collaborators of HTTPHandler.
type Deps struct {
	Commerce      Commerce
	Content       Content
	Auth          PhoneAuth
	Geocoder      Geocoder
	Tracker       SessionTracker
	Carts         *cart.Sessions
	Values        store.SessionStorer
	Events        events.Publisher
	TopCategories int
	LoginPath     string
	Session       SessionCookie
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	Deps
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(deps Deps) *HTTPHandler {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Tracker == nil {
		deps.Tracker = nopTracker{}
	}
	if deps.TopCategories <= 0 {
		deps.TopCategories = 10
	}
	if deps.LoginPath == "" {
		deps.LoginPath = "/login"
	}
	if deps.Session.Name == "" {
		deps.Session.Name = defaultSessionCookie
	}
	return &HTTPHandler{
		Deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logrus.WithError(err).Error("Failed to encode JSON response")
		}
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the handler may continue.
func (h *HTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// cartFor returns the cart store of the request's session. When the persisted
// cart cannot be loaded it writes a 503 and reports false.
func (h *HTTPHandler) cartFor(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	c, err := h.Carts.Get(r.Context(), sessionID(r))
	if err != nil {
		requestLogger(r).WithError(err).Error("Failed to load cart")
		respondWithError(w, http.StatusServiceUnavailable, "Cart temporarily unavailable")
		return nil, false
	}
	return c, true
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.ensureSessionID)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)            // GET /api/products?slug=&limit=&category=&attr.size=&sort=
			r.Get("/facets", h.ListProductFacets) // GET /api/products/facets
			r.Get("/{productId}/reviews", h.ListReviews)
		})
		r.Get("/colors/{color}/products", h.ListProductsByColor)
		r.Get("/categories", h.ListCategories)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)   // GET /api/orders?email=
			r.Post("/", h.CreateOrder) // POST /api/orders
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Get("/summary", h.GetCartSummary)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{slug}", h.UpdateCartItem)
			r.Delete("/items/{slug}", h.RemoveCartItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Post("/", h.AddWishlistItem)
			r.Delete("/{slug}", h.RemoveWishlistItem)
		})

		r.Post("/checkout/coupon", h.ApplyCoupon)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/otp", h.SendOTP)
			r.Post("/verify", h.VerifyOTP)
			r.Post("/logout", h.Logout)
			r.With(h.requireAuth).Get("/me", h.Me)
		})

		r.Route("/geocode", func(r chi.Router) {
			r.Get("/search", h.GeocodeSearch)
			r.Get("/reverse", h.GeocodeReverse)
		})

		// Signed-in only.
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/checkout", h.PlaceOrder)
			r.Post("/reviews", h.SubmitReview)
			r.Get("/addresses", h.ListAddresses)
			r.Post("/addresses", h.CreateAddress)
			r.Post("/account/profile", h.SaveProfile)
		})
	})
}
