package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"farmapos/internal/pos"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db       *sqlx.DB
	pos      *pos.Service
	logger   *zap.Logger
	secret   string
	validate *validator.Validate
}

// New constructs a Handler.
func New(db *sqlx.DB, posService *pos.Service, logger *zap.Logger, secret string) *Handler {
	return &Handler{
		db:       db,
		pos:      posService,
		logger:   logger,
		secret:   secret,
		validate: validator.New(),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/products", func(r chi.Router) {
			r.Post("/", h.createProduct)
			r.Get("/", h.searchProducts)
			r.Get("/{id}", h.getProduct)
			r.Put("/{id}", h.updateProduct)
		})

		pr.Route("/locations", func(r chi.Router) {
			r.Post("/", h.createLocation)
			r.Get("/", h.listLocations)
		})

		pr.Route("/suppliers", func(r chi.Router) {
			r.Post("/", h.createSupplier)
			r.Get("/", h.listSuppliers)
			r.Put("/{id}", h.updateSupplier)
		})

		pr.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.listInventory)
			r.Post("/adjust", h.adjustStock)
			r.Post("/purchases", h.receivePurchase)
			r.Get("/movements", h.listMovements)
			r.Get("/low-stock", h.lowStockAlerts)
			r.Get("/expiry-alert", h.expiryAlerts)
		})

		pr.Route("/clients", func(r chi.Router) {
			r.Post("/", h.createClient)
			r.Get("/", h.searchClients)
			r.Get("/{id}", h.getClient)
			r.Put("/{id}", h.updateClient)
			r.Get("/{id}/loyalty", h.clientLoyaltyHistory)
		})

		pr.Route("/loyalty-plans", func(r chi.Router) {
			r.Post("/", h.createLoyaltyPlan)
			r.Get("/", h.listLoyaltyPlans)
			r.Post("/{id}/activate", h.activateLoyaltyPlan)
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Post("/", h.checkout)
			r.Get("/{id}", h.getSale)
			r.Get("/{id}/receipt", h.saleReceipt)
		})

		pr.Route("/refunds", func(r chi.Router) {
			r.Post("/", h.createRefund)
		})

		pr.Route("/quotes", func(r chi.Router) {
			r.Post("/", h.createQuote)
			r.Get("/", h.listQuotes)
			r.Get("/{id}", h.getQuote)
			r.Post("/{id}/convert", h.convertQuote)
		})

		pr.Route("/cash-sessions", func(r chi.Router) {
			r.Post("/", h.openSession)
			r.Get("/", h.listSessions)
			r.Get("/{id}", h.getSession)
			r.Post("/{id}/movements", h.recordMovement)
			r.Post("/{id}/close", h.closeSession)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/sales/daily", h.dailySales)
			r.Get("/sales/monthly", h.monthlySales)
			r.Get("/sales", h.salesReport)
		})

		pr.Route("/settings", func(r chi.Router) {
			r.Get("/", h.getSettings)
			r.Put("/", h.updateSettings)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
