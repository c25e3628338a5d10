// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"librecirc/internal/notification"
)

type Handler struct {
	service  Service
	notifier *notification.Hub
}

func NewHandler(service Service, notifier *notification.Hub) *Handler {
	return &Handler{service: service, notifier: notifier}
}

// Routes mounts the circulation endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/borrow", h.handleBorrow)
	r.Post("/return", h.handleReturn)
	r.Get("/members/{id}/loans", h.handleMemberLoans)
	r.Get("/members/{id}/fines", h.handleMemberFines)
	r.Post("/fines/{id}/payments", h.handlePayFine)
	r.Get("/reports/overdue", h.handleOverdueReport)
	r.Get("/reports/active", h.handleActiveReport)
	return r
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID uuid.UUID `json:"member_id"`
		ItemID   uuid.UUID `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := h.service.Borrow(r.Context(), req.MemberID, req.ItemID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanID     uuid.UUID  `json:"loan_id"`
		ReturnDate *time.Time `json:"return_date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	returnDate := time.Time{}
	if req.ReturnDate != nil {
		returnDate = *req.ReturnDate
	}

	fine, err := h.service.Return(r.Context(), req.LoanID, returnDate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if fine != nil {
		h.notifier.Publish(notification.Event{
			Kind:     notification.KindFineIssued,
			MemberID: fine.MemberID,
			Message:  fmt.Sprintf("An overdue return issued a fine of $%.2f.", fine.Amount),
		})
	}

	resp := struct {
		Returned bool  `json:"returned"`
		Fine     *Fine `json:"fine,omitempty"`
	}{Returned: true, Fine: fine}
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleMemberLoans(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var loans []*Loan
	if r.URL.Query().Get("open") == "true" {
		loans, err = h.service.GetMemberOpenLoans(r.Context(), id)
	} else {
		loans, err = h.service.GetMemberLoans(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(loans)
}

func (h *Handler) handleMemberFines(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var fines []*Fine
	if r.URL.Query().Get("unpaid") == "true" {
		fines, err = h.service.GetMemberUnpaidFines(r.Context(), id)
	} else {
		fines, err = h.service.GetMemberFines(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(fines)
}

func (h *Handler) handlePayFine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid fine ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
		Method string  `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payment, err := h.service.PayFine(r.Context(), id, req.Amount, req.Method)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(payment)
}

func (h *Handler) handleOverdueReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.OverdueReport(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(report)
}

func (h *Handler) handleActiveReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ActiveLoansReport(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(report)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var restriction *RestrictionError
	switch {
	case errors.As(err, &restriction):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrAlreadyReturned):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrLoanNotFound), errors.Is(err, ErrFineNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidPayment):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
