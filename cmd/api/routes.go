package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"hostelflow/auth"
)

func (s *Server) routes() http.Handler {
	standard := alice.New(s.recoverPanic, s.logRequest)
	student := standard.Append(s.requireAuth(auth.RoleStudent))
	manager := standard.Append(s.requireAuth(auth.RoleManager))

	mux := pat.New()

	// Paystack calls this server-to-server; authentication is the HMAC
	// signature over the body, not a bearer token.
	mux.Post("/api/payments/webhook", standard.ThenFunc(s.handlePaystackWebhook))

	mux.Post("/api/auth/register", standard.ThenFunc(s.handleRegister))
	mux.Post("/api/auth/login", standard.ThenFunc(s.handleLogin))

	mux.Get("/api/invoices", student.ThenFunc(s.handleInvoices))
	mux.Get("/api/receipts", student.ThenFunc(s.handleReceipts))
	mux.Get("/api/agreements", student.ThenFunc(s.handleAgreements))
	mux.Get("/api/notifications", student.ThenFunc(s.handleNotifications))
	mux.Post("/api/notifications/:id/read", student.ThenFunc(s.handleNotificationRead))
	mux.Get("/api/disputes", student.ThenFunc(s.handleListDisputes))
	mux.Post("/api/disputes", student.ThenFunc(s.handleCreateDispute))

	mux.Post("/api/agreements/:id/invoices", manager.ThenFunc(s.handleIssueInvoice))
	mux.Post("/api/disputes/:id/resolve", manager.ThenFunc(s.handleResolveDispute))
	mux.Get("/api/audit", manager.ThenFunc(s.handleAuditTrail))

	// The cors wrapper only short-circuits OPTIONS preflights that carry
	// Access-Control-Request-Method; answer bare OPTIONS probes here so
	// they never fall through to a 404/405 from the router.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		mux.ServeHTTP(w, r)
	})
}
