/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Session:    Resolves X-session-ID on every route except session creation

SESSION RESOLUTION:
  The token travels in the X-session-ID header, with a session_id query
  parameter fallback. A missing or unknown token yields 401 before any
  handler runs.

ROUTE GROUPS:
  /api/v1/sessions         Session creation (no token required)
  /api/v1/scenarios        Demo scenario loading (mints its own session)
  /api/v1/transactions/*   Transaction CRUD + category assignment
  /api/v1/categories/*     Category CRUD
  /api/v1/categoryRules/*  Auto-categorization rules
  /api/v1/balance/history  OHLCV balance history
  /api/v1/savingGoals/*    Saving goals
  /api/v1/paymentRequests  Payment requests
  /api/v1/messages/*       Advisory messages

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/ledger-engine/ledger"
)

// SessionHeader carries the session token.
const SessionHeader = "X-session-ID"

type contextKey string

const sessionKey contextKey = "session"

// sessionID returns the session resolved by the middleware. Only valid on
// routes behind requireSession.
func sessionID(ctx context.Context) ledger.SessionID {
	sid, _ := ctx.Value(sessionKey).(ledger.SessionID)
	return sid
}

// requireSession resolves and verifies the session token, rejecting the
// request with 401 when it is missing or unknown.
func requireSession(store ledger.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(SessionHeader)
			if token == "" {
				token = r.URL.Query().Get("session_id")
			}
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Session invalid or missing", ledger.ErrUnauthorized)
				return
			}

			ok, err := store.HasSession(r.Context(), ledger.SessionID(token))
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Internal error", err)
				return
			}
			if !ok {
				writeError(w, http.StatusUnauthorized, "Session invalid or missing", ledger.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, ledger.SessionID(token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader},
		AllowCredentials: false,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Session creation and demo scenarios mint their own tokens, so
		// they sit outside the session requirement.
		r.Post("/sessions", h.CreateSession)
		r.Get("/scenarios", h.ListScenarios)
		r.Post("/scenarios/load", h.LoadScenario)

		r.Group(func(r chi.Router) {
			r.Use(requireSession(h.Store))

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.CreateTransaction)
				r.Get("/{transactionId}", h.GetTransaction)
				r.Put("/{transactionId}", h.UpdateTransaction)
				r.Delete("/{transactionId}", h.DeleteTransaction)
				r.Patch("/{transactionId}/category", h.AssignCategory)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Post("/", h.CreateCategory)
				r.Get("/{categoryId}", h.GetCategory)
				r.Put("/{categoryId}", h.UpdateCategory)
				r.Delete("/{categoryId}", h.DeleteCategory)
			})

			r.Route("/categoryRules", func(r chi.Router) {
				r.Get("/", h.ListCategoryRules)
				r.Post("/", h.CreateCategoryRule)
				r.Get("/{categoryRuleId}", h.GetCategoryRule)
				r.Put("/{categoryRuleId}", h.UpdateCategoryRule)
				r.Delete("/{categoryRuleId}", h.DeleteCategoryRule)
			})

			r.Get("/balance/history", h.BalanceHistory)

			r.Route("/savingGoals", func(r chi.Router) {
				r.Get("/", h.ListSavingGoals)
				r.Post("/", h.CreateSavingGoal)
				r.Delete("/{savingGoalId}", h.DeleteSavingGoal)
			})

			r.Route("/paymentRequests", func(r chi.Router) {
				r.Get("/", h.ListPaymentRequests)
				r.Post("/", h.CreatePaymentRequest)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Get("/", h.ListMessages)
				r.Put("/{messageId}", h.MarkMessageRead)
			})
		})
	})

	return r
}
