package http

import (
	"net/http"
	"time"

	"github.com/NinePK/back-car/internal/logger"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every route of the API. Route names are the keys of
// config.EndpointSecurityConfig.
func NewRouter(h *Handler, auth *AuthMiddleware) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet).Name("Health/Live")
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("Metrics")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware)

	// Either party
	api.HandleFunc("/rentals", h.ListRentals).Methods(http.MethodGet).Name("RentalService/ListRentals")
	api.HandleFunc("/rentals/{id}", h.GetRental).Methods(http.MethodGet).Name("RentalService/GetRental")
	api.HandleFunc("/rentals/{id}/history", h.GetHistory).Methods(http.MethodGet).Name("RentalService/GetHistory")
	api.HandleFunc("/rentals/{id}/payment", h.GetPayment).Methods(http.MethodGet).Name("PaymentService/GetPayment")
	api.HandleFunc("/notifications", h.GetNotifications).Methods(http.MethodGet).Name("NotificationService/GetNotifications")
	api.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost).Name("NotificationService/MarkNotificationRead")

	// Customer
	customer := api.PathPrefix("/customer").Subrouter()
	customer.HandleFunc("/rentals", h.CreateBooking).Methods(http.MethodPost).Name("RentalService/CreateBooking")
	customer.HandleFunc("/rentals/{id}/cancel", h.CancelRental).Methods(http.MethodPost).Name("RentalService/CancelRental")
	customer.HandleFunc("/rentals/{id}/return", h.RequestReturn).Methods(http.MethodPost).Name("RentalService/RequestReturn")
	customer.HandleFunc("/rentals/{id}/payment", h.SubmitProof).Methods(http.MethodPost).Name("PaymentService/SubmitProof")

	// Shop
	shop := api.PathPrefix("/shop").Subrouter()
	shop.HandleFunc("/rentals/{id}/decision", h.DecideRental).Methods(http.MethodPost).Name("RentalService/DecideRental")
	shop.HandleFunc("/rentals/{id}/start", h.StartRental).Methods(http.MethodPost).Name("RentalService/StartRental")
	shop.HandleFunc("/rentals/{id}/return-decision", h.DecideReturn).Methods(http.MethodPost).Name("RentalService/DecideReturn")
	shop.HandleFunc("/rentals/{id}/status", h.UpdateRentalStatus).Methods(http.MethodPut).Name("RentalService/UpdateRentalStatus")
	shop.HandleFunc("/rentals/{id}/payment/verify", h.VerifyPayment).Methods(http.MethodPost).Name("PaymentService/VerifyPayment")
	shop.HandleFunc("/rentals/{id}/approve-booking", h.ApproveBooking).Methods(http.MethodPost).Name("PaymentService/ApproveBooking")
	shop.HandleFunc("/payments", h.ListPayments).Methods(http.MethodGet).Name("PaymentService/ListPayments")
	shop.HandleFunc("/payments/pending", h.ListPendingPayments).Methods(http.MethodGet).Name("PaymentService/ListPendingPayments")
	shop.HandleFunc("/vehicles/{id}/status", h.SetVehicleStatus).Methods(http.MethodPut).Name("AvailabilityService/SetVehicleStatus")
	shop.HandleFunc("/vehicles/{id}", h.DeleteVehicle).Methods(http.MethodDelete).Name("AvailabilityService/DeleteVehicle")

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := logger.WithAttrs(r.Context(), "request_id", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.InfoContext(ctx, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
