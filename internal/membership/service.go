// internal/membership/service.go
package membership

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrInvalidMember    = errors.New("invalid member")
	ErrBadCredentials   = errors.New("invalid credentials")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrAlreadyInactive  = errors.New("member already deactivated")
	ErrDuplicateEmail   = errors.New("email already registered")
)

// Service defines the interface for the membership service.
type Service interface {
	RegisterMember(ctx context.Context, email, name, password string) (*Member, error)
	Authenticate(ctx context.Context, email, password string) (*Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	DeactivateMember(ctx context.Context, id uuid.UUID) error
}
