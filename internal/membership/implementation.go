// internal/membership/implementation.go
package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"librecirc/internal/eventlog"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type eventAppender interface {
	Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, records []eventlog.Record) error
}

// service implements the Service interface.
type service struct {
	store       MemberStore
	events      eventAppender
	rateLimiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(store MemberStore, events eventAppender) Service {
	return &service{
		store:       store,
		events:      events,
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5),
	}
}

// RegisterMember creates a new member with an active account and argon2id
// credentials.
func (s *service) RegisterMember(ctx context.Context, email, name, password string) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidMember)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidMember)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidMember)
	}

	id := uuid.New()
	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	payload, err := json.Marshal(MemberRegisteredEvent{ID: id, Email: email, Name: name})
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "MemberRegistered", Payload: payload}
	if err := s.events.Append(ctx, id, "member", 0, []eventlog.Record{record}); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	now := time.Now().UTC()
	member := &Member{
		ID:           id,
		Email:        email,
		Name:         name,
		Status:       StatusActive,
		RegisteredAt: now,
		ExpiresAt:    now.AddDate(1, 0, 0),
		Version:      1,
	}
	credential := &Credential{MemberID: id, PasswordHash: passwordHash, Salt: salt}

	if err := s.store.Save(ctx, member, credential); err != nil {
		return nil, fmt.Errorf("update read model: %w", err)
	}

	return member, nil
}

// Authenticate verifies a member's credentials and returns the member if
// successful. Unknown emails and wrong passwords report the same error.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	member, err := s.store.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if member == nil {
		return nil, ErrBadCredentials
	}

	credential, err := s.store.FindCredential(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if credential == nil {
		return nil, ErrBadCredentials
	}

	ok, err := verifyPassword(password, credential.Salt, credential.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		return nil, ErrBadCredentials
	}

	return member, nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	member, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	return member, nil
}

// DeactivateMember closes a member account. Deactivated members fail the
// borrowing eligibility check.
func (s *service) DeactivateMember(ctx context.Context, id uuid.UUID) error {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return err
	}
	if member.Status == StatusDeactivated {
		return ErrAlreadyInactive
	}

	payload, err := json.Marshal(MemberDeactivatedEvent{ID: id})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "MemberDeactivated", Payload: payload}
	if err := s.events.Append(ctx, id, "member", member.Version, []eventlog.Record{record}); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return s.store.SetStatus(ctx, id, StatusDeactivated, member.Version)
}
