// internal/notification/notification.go
package notification

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Kind classifies a notification event.
type Kind string

const (
	KindReservationFulfilled Kind = "reservation_fulfilled"
	KindFineIssued           Kind = "fine_issued"
)

// Event is one notification to a member. Delivery is best-effort and
// out-of-band; nothing in circulation blocks on it.
type Event struct {
	Kind     Kind
	MemberID uuid.UUID
	ItemID   uuid.UUID
	Message  string
}

// Observer receives published events.
type Observer interface {
	Notify(event Event)
}

// Hub fans events out to the attached observers.
type Hub struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewHub(observers ...Observer) *Hub {
	return &Hub{observers: observers}
}

// Attach registers an observer.
func (h *Hub) Attach(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, o)
}

// Publish delivers the event to every observer.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, o := range h.observers {
		o.Notify(event)
	}
}

// EmailObserver renders events as outgoing mail. Actual delivery is handed
// to the mail relay elsewhere; here it is written to the service log.
type EmailObserver struct{}

func (EmailObserver) Notify(event Event) {
	log.Printf("notify member=%s kind=%s item=%s: %s", event.MemberID, event.Kind, event.ItemID, event.Message)
}
