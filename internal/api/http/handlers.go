package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/NinePK/back-car/internal/domain"
	"github.com/NinePK/back-car/internal/security"
	"github.com/NinePK/back-car/internal/service"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// Handler exposes the rental engine over JSON.
type Handler struct {
	rentals       service.RentalService
	payments      service.PaymentService
	availability  service.AvailabilityService
	notifications service.NotificationService
}

func NewHandler(
	rentals service.RentalService,
	payments service.PaymentService,
	availability service.AvailabilityService,
	notifications service.NotificationService,
) *Handler {
	return &Handler{
		rentals:       rentals,
		payments:      payments,
		availability:  availability,
		notifications: notifications,
	}
}

type createBookingRequest struct {
	VehicleID      int64       `json:"vehicle_id"`
	StartDate      string      `json:"start_date"`
	EndDate        string      `json:"end_date"`
	PickupLocation string      `json:"pickup_location"`
	ReturnLocation string      `json:"return_location"`
	TotalAmount    clientTotal `json:"total_amount"`
}

// clientTotal takes a JSON string or number as written. Anything else is
// kept as raw text and priced like any malformed total.
type clientTotal string

func (c *clientTotal) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = clientTotal(s)
		return nil
	}
	*c = clientTotal(b)
	return nil
}

type decisionRequest struct {
	Approve *bool `json:"approve"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type proofRequest struct {
	ProofRef string `json:"proof_ref"`
	Method   string `json:"payment_method"`
}

type listResponse struct {
	Items    any   `json:"items"`
	Total    int32 `json:"total"`
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
}

type paymentResultResponse struct {
	Rental  *RentalDTO  `json:"rental"`
	Payment *PaymentDTO `json:"payment,omitempty"`
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decode(w, r, &req) {
		return
	}
	booking := service.BookingRequest{
		VehicleID:      req.VehicleID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
		ClientTotal:    string(req.TotalAmount),
	}

	rt, err := h.rentals.CreateBooking(r.Context(), actor(r), booking)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MapDomainRentalToDTO(rt))
}

func (h *Handler) ListRentals(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	rentals, total, err := h.rentals.ListRentals(r.Context(), actor(r), r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: MapDomainRentalsToDTO(rentals), Total: total, Page: page, PageSize: pageSize})
}

func (h *Handler) GetRental(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rt, err := h.rentals.GetRental(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MapDomainRentalToDTO(rt))
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	history, err := h.rentals.GetHistory(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MapDomainTransitionsToDTO(history))
}

// rentalAction adapts a single-rental operation without a body.
func (h *Handler) rentalAction(op func(r *http.Request, a domain.Actor, id int64) (*domain.Rental, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		rt, err := op(r, actor(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MapDomainRentalToDTO(rt))
	}
}

// rentalDecision adapts an approve/reject operation on a rental.
func (h *Handler) rentalDecision(op func(r *http.Request, a domain.Actor, id int64, approve *bool) (*domain.Rental, error)) http.HandlerFunc {
	return h.rentalAction(func(r *http.Request, a domain.Actor, id int64) (*domain.Rental, error) {
		var req decisionRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		return op(r, a, id, req.Approve)
	})
}

func (h *Handler) CancelRental(w http.ResponseWriter, r *http.Request) {
	h.rentalAction(func(r *http.Request, a domain.Actor, id int64) (*domain.Rental, error) {
		return h.rentals.CancelRental(r.Context(), a, id)
	})(w, r)
}

func (h *Handler) StartRental(w http.ResponseWriter, r *http.Request) {
	h.rentalAction(func(r *http.Request, a domain.Actor, id int64) (*domain.Rental, error) {
		return h.rentals.StartRental(r.Context(), a, id)
	})(w, r)
}

func (h *Handler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	h.rentalAction(func(r *http.Request, a domain.Actor, id int64) (*domain.Rental, error) {
		return h.rentals.RequestReturn(r.Context(), a, id)
	})(w, r)
}

func (h *Handler) DecideRental(w http.ResponseWriter, r *http.Request) {
	h.rentalDecision(func(r *http.Request, a domain.Actor, id int64, approve *bool) (*domain.Rental, error) {
		return h.rentals.DecideRental(r.Context(), a, id, approve)
	})(w, r)
}

func (h *Handler) DecideReturn(w http.ResponseWriter, r *http.Request) {
	h.rentalDecision(func(r *http.Request, a domain.Actor, id int64, approve *bool) (*domain.Rental, error) {
		return h.rentals.DecideReturn(r.Context(), a, id, approve)
	})(w, r)
}

func (h *Handler) UpdateRentalStatus(w http.ResponseWriter, r *http.Request) {
	h.rentalAction(func(r *http.Request, a domain.Actor, id int64) (*domain.Rental, error) {
		var req statusRequest
		if err := decodeBody(r, &req); err != nil {
			return nil, err
		}
		return h.rentals.UpdateRentalStatus(r.Context(), a, id, domain.RentalStatus(req.Status))
	})(w, r)
}

func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req proofRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.payments.SubmitProof(r.Context(), actor(r), id, service.ProofRequest{
		ProofRef: req.ProofRef,
		Method:   domain.PaymentMethod(req.Method),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MapDomainPaymentToDTO(p))
}

func (h *Handler) paymentDecision(op func(r *http.Request, a domain.Actor, id int64, approve *bool) (*service.PaymentResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req decisionRequest
		if !decode(w, r, &req) {
			return
		}
		res, err := op(r, actor(r), id, req.Approve)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, paymentResultResponse{
			Rental:  MapDomainRentalToDTO(res.Rental),
			Payment: MapDomainPaymentToDTO(res.Payment),
		})
	}
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	h.paymentDecision(func(r *http.Request, a domain.Actor, id int64, approve *bool) (*service.PaymentResult, error) {
		return h.payments.VerifyPayment(r.Context(), a, id, approve)
	})(w, r)
}

func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	h.paymentDecision(func(r *http.Request, a domain.Actor, id int64, approve *bool) (*service.PaymentResult, error) {
		return h.payments.ApproveBooking(r.Context(), a, id, approve)
	})(w, r)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.payments.GetPayment(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MapDomainPaymentToDTO(p))
}

func (h *Handler) ListPendingPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.ListPendingPayments(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MapDomainPaymentsToDTO(payments))
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.ListPayments(r.Context(), actor(r), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MapDomainPaymentsToDTO(payments))
}

func (h *Handler) SetVehicleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.availability.SetVehicleStatus(r.Context(), actor(r), id, domain.VehicleStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MapDomainVehicleToDTO(v))
}

func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.availability.DeleteVehicle(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	notes, total, err := h.notifications.GetNotifications(r.Context(), actor(r).ID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: MapDomainNotificationsToDTO(notes), Total: total, Page: page, PageSize: pageSize})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.notifications.MarkAsRead(r.Context(), actor(r).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func actor(r *http.Request) domain.Actor {
	a, _ := security.ActorFromContext(r.Context())
	return a
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, domain.InvalidInput("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func pagination(r *http.Request) (int32, int32) {
	q := r.URL.Query()
	page, _ := strconv.ParseInt(q.Get("page"), 10, 32)
	pageSize, _ := strconv.ParseInt(q.Get("page_size"), 10, 32)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return int32(page), int32(pageSize)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(r, v); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.InvalidInput("malformed request body: %v", err)
	}
	return nil
}
