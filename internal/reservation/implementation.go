// internal/reservation/implementation.go
package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"librecirc/internal/catalog"
	"librecirc/internal/clock"
	"librecirc/internal/eventlog"
	"librecirc/internal/membership"
)

type catalogGateway interface {
	GetItem(ctx context.Context, id uuid.UUID) (*catalog.Item, error)
}

type membershipGateway interface {
	GetMember(ctx context.Context, id uuid.UUID) (*membership.Member, error)
}

type eventAppender interface {
	Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, records []eventlog.Record) error
}

// service implements the Service interface.
type service struct {
	store   Store
	items   catalogGateway
	members membershipGateway
	events  eventAppender
	clk     clock.Clock
}

// NewService creates a new reservation queue manager.
func NewService(store Store, items catalogGateway, members membershipGateway, events eventAppender, clk clock.Clock) Service {
	return &service{
		store:   store,
		items:   items,
		members: members,
		events:  events,
		clk:     clk,
	}
}

// CreateReservation queues a claim for an exhausted item. Reservations are
// only accepted while the item has zero available copies.
func (s *service) CreateReservation(ctx context.Context, memberID, itemID uuid.UUID) (*Reservation, error) {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("look up member: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}

	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("look up item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if item.Available > 0 {
		return nil, fmt.Errorf("%w: %d copies on the shelf", ErrItemAvailable, item.Available)
	}

	already, err := s.HasActiveReservation(ctx, memberID, itemID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrDuplicateReservation
	}

	now := s.clk.Now().UTC()
	res := &Reservation{
		ID:         uuid.New(),
		MemberID:   memberID,
		ItemID:     itemID,
		ReservedAt: now,
		ExpiresAt:  now.AddDate(0, 0, HorizonDays),
		Status:     StatusActive,
	}

	payload, err := json.Marshal(ReservationCreatedEvent{
		ReservationID: res.ID,
		MemberID:      memberID,
		ItemID:        itemID,
		ExpiresAt:     res.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "ReservationCreated", Payload: payload}
	if err := s.events.Append(ctx, res.ID, "reservation", 0, []eventlog.Record{record}); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	if err := s.store.Save(ctx, res); err != nil {
		return nil, fmt.Errorf("save reservation: %w", err)
	}

	return res, nil
}

// CancelReservation transitions an active reservation to CANCELLED. Only the
// owner may cancel.
func (s *service) CancelReservation(ctx context.Context, reservationID, memberID uuid.UUID) error {
	res, err := s.store.FindByID(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("look up reservation: %w", err)
	}
	if res == nil {
		return fmt.Errorf("%w: %s", ErrReservationNotFound, reservationID)
	}
	if res.MemberID != memberID {
		return ErrNotOwner
	}
	if res.Status != StatusActive {
		return fmt.Errorf("%w: status is %s", ErrNotActive, res.Status)
	}

	return s.transition(ctx, res, StatusCancelled)
}

// FulfillNextReservation promotes the head of the item's FIFO queue to
// FULFILLED. An empty queue is not an error. This mutates reservation state
// only; the caller owns inventory and notification follow-up.
func (s *service) FulfillNextReservation(ctx context.Context, itemID uuid.UUID) (*Reservation, error) {
	queue, err := s.store.FindActiveByItemID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load item queue: %w", err)
	}
	if len(queue) == 0 {
		return nil, nil
	}

	head := queue[0]
	if err := s.transition(ctx, head, StatusFulfilled); err != nil {
		return nil, err
	}
	head.Status = StatusFulfilled
	return head, nil
}

// ExpireOldReservations sweeps every active reservation whose expiry date is
// strictly before now. Safe to run repeatedly; a second sweep with no clock
// advance transitions nothing.
func (s *service) ExpireOldReservations(ctx context.Context) (int, error) {
	now := s.clk.Now().UTC()
	stale, err := s.store.FindExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load expired reservations: %w", err)
	}

	expired := 0
	for _, res := range stale {
		if err := s.transition(ctx, res, StatusExpired); err != nil {
			// A concurrent transition already retired this one; the sweep
			// carries on with the rest.
			if errors.Is(err, ErrNotActive) || errors.Is(err, eventlog.ErrVersionConflict) {
				continue
			}
			return expired, err
		}
		expired++
	}

	return expired, nil
}

// QueuePosition returns the 1-based rank of a reservation in its item's
// active queue, and -1 when the reservation is missing, not active, or
// absent from the queue. It never fails for those expected cases.
func (s *service) QueuePosition(ctx context.Context, reservationID uuid.UUID) (int, error) {
	res, err := s.store.FindByID(ctx, reservationID)
	if err != nil {
		return -1, fmt.Errorf("look up reservation: %w", err)
	}
	if res == nil || res.Status != StatusActive {
		return -1, nil
	}

	queue, err := s.store.FindActiveByItemID(ctx, res.ItemID)
	if err != nil {
		return -1, fmt.Errorf("load item queue: %w", err)
	}

	for i, queued := range queue {
		if queued.ID == reservationID {
			return i + 1, nil
		}
	}
	return -1, nil
}

// HasActiveReservation reports whether the member holds an active
// reservation for the item.
func (s *service) HasActiveReservation(ctx context.Context, memberID, itemID uuid.UUID) (bool, error) {
	active, err := s.store.FindActiveByMemberID(ctx, memberID)
	if err != nil {
		return false, fmt.Errorf("load member reservations: %w", err)
	}
	for _, res := range active {
		if res.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) GetMemberReservations(ctx context.Context, memberID uuid.UUID) ([]*Reservation, error) {
	return s.store.FindByMemberID(ctx, memberID)
}

func (s *service) GetActiveMemberReservations(ctx context.Context, memberID uuid.UUID) ([]*Reservation, error) {
	return s.store.FindActiveByMemberID(ctx, memberID)
}

func (s *service) GetItemReservationQueue(ctx context.Context, itemID uuid.UUID) ([]*Reservation, error) {
	return s.store.FindActiveByItemID(ctx, itemID)
}

// transition records the state change in the event log and applies it to the
// read model. The store rejects transitions out of terminal states.
func (s *service) transition(ctx context.Context, res *Reservation, to Status) error {
	payload, err := json.Marshal(ReservationTransitionedEvent{
		ReservationID: res.ID,
		From:          res.Status,
		To:            to,
	})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "Reservation" + transitionEventName(to), Payload: payload}
	if err := s.events.Append(ctx, res.ID, "reservation", 1, []eventlog.Record{record}); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return s.store.Transition(ctx, res.ID, to)
}

func transitionEventName(to Status) string {
	switch to {
	case StatusFulfilled:
		return "Fulfilled"
	case StatusExpired:
		return "Expired"
	default:
		return "Cancelled"
	}
}
