package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"selfstore-backend/internal/security"
	"selfstore-backend/internal/service"
)

// NewRouter wires every API route. All data routes require a bearer token
// issued by the identity provider; the webhook route uses the capture
// service's own service-account token.
func NewRouter(
	tokens security.TokenManager,
	rentalSvc service.RentalService,
	invoiceSvc service.InvoiceService,
	billingSvc service.BillingService,
) *mux.Router {
	rentals := NewRentalHandler(rentalSvc, invoiceSvc, billingSvc)
	billing := NewBillingHandler(billingSvc, invoiceSvc)

	router := mux.NewRouter()
	router.Use(LoggingMiddleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(mux.MiddlewareFunc(AuthMiddleware(tokens)))

	api.HandleFunc("/rentals", rentals.Create).Methods("POST")
	api.HandleFunc("/rentals", rentals.List).Methods("GET")
	api.HandleFunc("/rentals/{id}", rentals.Get).Methods("GET")
	api.HandleFunc("/rentals/{id}/submit", rentals.SubmitForSignature).Methods("POST")
	api.HandleFunc("/rentals/{id}/activate", rentals.Activate).Methods("POST")
	api.HandleFunc("/rentals/{id}/terminate", rentals.Terminate).Methods("POST")
	api.HandleFunc("/rentals/{id}/invoices", rentals.ListInvoices).Methods("GET")
	api.HandleFunc("/rentals/{id}/reconciliation", rentals.Reconcile).Methods("GET")

	api.HandleFunc("/invoices", billing.ListInvoices).Methods("GET")
	api.HandleFunc("/invoices/{id}", billing.GetInvoice).Methods("GET")
	api.HandleFunc("/invoices/{id}/cancel", billing.CancelInvoice).Methods("POST")
	api.HandleFunc("/payments", billing.ListPayments).Methods("GET")
	api.HandleFunc("/ledger", billing.ListLedgerEntries).Methods("GET")
	api.HandleFunc("/billing/run", billing.RunBillingCycle).Methods("POST")

	webhooks := router.PathPrefix("/webhooks").Subrouter()
	webhooks.Use(mux.MiddlewareFunc(AuthMiddleware(tokens)))
	webhooks.HandleFunc("/payments", billing.PaymentWebhook).Methods("POST")

	return router
}
