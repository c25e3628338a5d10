// internal/membership/implementation_test.go
package membership

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librecirc/internal/eventlog"
)

type memMemberStore struct {
	members     map[uuid.UUID]*Member
	credentials map[uuid.UUID]*Credential
}

func newMemMemberStore() *memMemberStore {
	return &memMemberStore{
		members:     make(map[uuid.UUID]*Member),
		credentials: make(map[uuid.UUID]*Credential),
	}
}

func (s *memMemberStore) Save(_ context.Context, member *Member, credential *Credential) error {
	for _, existing := range s.members {
		if existing.Email == member.Email {
			return ErrDuplicateEmail
		}
	}
	copied := *member
	s.members[member.ID] = &copied
	copiedCred := *credential
	s.credentials[member.ID] = &copiedCred
	return nil
}

func (s *memMemberStore) FindByID(_ context.Context, id uuid.UUID) (*Member, error) {
	member, ok := s.members[id]
	if !ok {
		return nil, nil
	}
	copied := *member
	return &copied, nil
}

func (s *memMemberStore) FindByEmail(_ context.Context, email string) (*Member, error) {
	for _, member := range s.members {
		if member.Email == email {
			copied := *member
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memMemberStore) FindCredential(_ context.Context, memberID uuid.UUID) (*Credential, error) {
	credential, ok := s.credentials[memberID]
	if !ok {
		return nil, nil
	}
	copied := *credential
	return &copied, nil
}

func (s *memMemberStore) SetStatus(_ context.Context, id uuid.UUID, status MemberStatus, expectedVersion int) error {
	member, ok := s.members[id]
	if !ok || member.Version != expectedVersion {
		return ErrMemberNotFound
	}
	member.Status = status
	member.Version++
	return nil
}

type fakeEvents struct{}

func (fakeEvents) Append(context.Context, uuid.UUID, string, int, []eventlog.Record) error {
	return nil
}

func TestRegisterMember(t *testing.T) {
	ctx := context.Background()

	t.Run("registers an active member", func(t *testing.T) {
		store := newMemMemberStore()
		svc := NewService(store, fakeEvents{})

		member, err := svc.RegisterMember(ctx, "Reader@Example.com", "Avid Reader", "correct horse battery")
		require.NoError(t, err)

		assert.Equal(t, "reader@example.com", member.Email)
		assert.Equal(t, StatusActive, member.Status)
		assert.True(t, member.Active())

		credential, err := store.FindCredential(ctx, member.ID)
		require.NoError(t, err)
		require.NotNil(t, credential)
		assert.NotEmpty(t, credential.PasswordHash)
		assert.NotEqual(t, "correct horse battery", credential.PasswordHash)
	})

	t.Run("rejects a malformed email", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		_, err := svc.RegisterMember(ctx, "not-an-email", "Avid Reader", "correct horse battery")
		require.ErrorIs(t, err, ErrInvalidMember)
	})

	t.Run("rejects a short password", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		_, err := svc.RegisterMember(ctx, "reader@example.com", "Avid Reader", "short")
		require.ErrorIs(t, err, ErrInvalidMember)
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		_, err := svc.RegisterMember(ctx, "reader@example.com", "   ", "correct horse battery")
		require.ErrorIs(t, err, ErrInvalidMember)
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		_, err := svc.RegisterMember(ctx, "reader@example.com", "Avid Reader", "correct horse battery")
		require.NoError(t, err)

		_, err = svc.RegisterMember(ctx, "reader@example.com", "Other Reader", "correct horse battery")
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials succeed", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		registered, err := svc.RegisterMember(ctx, "reader@example.com", "Avid Reader", "correct horse battery")
		require.NoError(t, err)

		member, err := svc.Authenticate(ctx, "reader@example.com", "correct horse battery")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, member.ID)
	})

	t.Run("wrong password fails", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		_, err := svc.RegisterMember(ctx, "reader@example.com", "Avid Reader", "correct horse battery")
		require.NoError(t, err)

		_, err = svc.Authenticate(ctx, "reader@example.com", "wrong password")
		require.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("unknown email reports the same error as a wrong password", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		_, err := svc.Authenticate(ctx, "ghost@example.com", "whatever password")
		require.ErrorIs(t, err, ErrBadCredentials)
	})
}

func TestDeactivateMember(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivation ends borrowing rights", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		member, err := svc.RegisterMember(ctx, "reader@example.com", "Avid Reader", "correct horse battery")
		require.NoError(t, err)

		require.NoError(t, svc.DeactivateMember(ctx, member.ID))

		updated, err := svc.GetMember(ctx, member.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusDeactivated, updated.Status)
		assert.False(t, updated.Active())
	})

	t.Run("deactivating twice fails", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		member, err := svc.RegisterMember(ctx, "reader@example.com", "Avid Reader", "correct horse battery")
		require.NoError(t, err)

		require.NoError(t, svc.DeactivateMember(ctx, member.ID))
		require.ErrorIs(t, svc.DeactivateMember(ctx, member.ID), ErrAlreadyInactive)
	})

	t.Run("unknown member fails", func(t *testing.T) {
		svc := NewService(newMemMemberStore(), fakeEvents{})

		require.ErrorIs(t, svc.DeactivateMember(ctx, uuid.New()), ErrMemberNotFound)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, salt, err := hashPassword("correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEmpty(t, salt)

	ok, err := verifyPassword("correct horse battery", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("wrong password", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)

	// A second hash of the same password must use a fresh salt.
	hash2, salt2, err := hashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, salt, salt2)
	assert.NotEqual(t, hash, hash2)
}
