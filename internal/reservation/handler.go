// internal/reservation/handler.go
package reservation

import (
	"encoding/json"
	"errors"
	"net/http"

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

// Routes mounts the reservation endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/reservations", h.handleCreate)
	r.Delete("/reservations/{id}", h.handleCancel)
	r.Get("/reservations/{id}/position", h.handlePosition)
	r.Post("/items/{id}/fulfill", h.handleFulfill)
	r.Post("/expire", h.handleExpire)
	r.Get("/members/{id}/reservations", h.handleMemberReservations)
	r.Get("/items/{id}/queue", h.handleItemQueue)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID uuid.UUID `json:"member_id"`
		ItemID   uuid.UUID `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.CreateReservation(r.Context(), req.MemberID, req.ItemID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid reservation ID", http.StatusBadRequest)
		return
	}

	var req struct {
		MemberID uuid.UUID `json:"member_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.CancelReservation(r.Context(), id, req.MemberID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePosition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid reservation ID", http.StatusBadRequest)
		return
	}

	position, err := h.service.QueuePosition(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(struct {
		Position int `json:"position"`
	}{Position: position})
}

// handleFulfill runs the fulfillment step the application triggers after a
// successful return. The notification side effect lives here, at the caller
// level, not inside the queue manager.
func (h *Handler) handleFulfill(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item ID", http.StatusBadRequest)
		return
	}

	res, err := h.service.FulfillNextReservation(r.Context(), itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.notifier.Publish(notification.Event{
		Kind:     notification.KindReservationFulfilled,
		MemberID: res.MemberID,
		ItemID:   res.ItemID,
		Message:  "A copy you reserved is ready for pickup.",
	})

	json.NewEncoder(w).Encode(res)
}

func (h *Handler) handleExpire(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ExpireOldReservations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(struct {
		Expired int `json:"expired"`
	}{Expired: count})
}

func (h *Handler) handleMemberReservations(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var reservations []*Reservation
	if r.URL.Query().Get("active") == "true" {
		reservations, err = h.service.GetActiveMemberReservations(r.Context(), id)
	} else {
		reservations, err = h.service.GetMemberReservations(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(reservations)
}

func (h *Handler) handleItemQueue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid item ID", http.StatusBadRequest)
		return
	}

	queue, err := h.service.GetItemReservationQueue(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(queue)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrReservationNotFound),
		errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrItemAvailable),
		errors.Is(err, ErrDuplicateReservation),
		errors.Is(err, ErrNotActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
