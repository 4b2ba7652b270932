package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharma-backoffice/internal/domain"
	"pharma-backoffice/internal/repo/repotest"
)

func newLocalService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewLocalRepository(repotest.NewStore(t).Users()))
}

func TestService_CreateListToggle(t *testing.T) {
	ctx := context.Background()
	svc := newLocalService(t)

	u, err := svc.Create(ctx, domain.UserInput{
		ID: "u1", Name: "A", Email: "a@x.io", Role: domain.RoleSeller, Status: domain.UserActive,
	})
	require.NoError(t, err)
	assert.False(t, u.CreatedAt.IsZero())

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a@x.io", all[0].Email)

	got, err := svc.ToggleBlock(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserBlocked, got.Status)

	got, err = svc.ToggleBlock(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserActive, got.Status)

	stored, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserActive, stored.Status)
}

func TestService_DuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	svc := newLocalService(t)

	_, err := svc.Create(ctx, domain.UserInput{ID: "u1", Name: "A", Email: "a@x.io", Role: domain.RoleSeller})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.UserInput{ID: "u2", Name: "B", Email: "A@X.io", Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, domain.ErrConflict)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_UpdateAppliesPatch(t *testing.T) {
	ctx := context.Background()
	svc := newLocalService(t)
	created, err := svc.Create(ctx, domain.UserInput{ID: "u1", Name: "A", Email: "a@x.io", Role: domain.RoleSeller})
	require.NoError(t, err)

	name, role, kyc := "Ana", domain.RoleManager, true
	got, err := svc.Update(ctx, "u1", Patch{Name: &name, Role: &role, KYCVerified: &kyc})
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, domain.RoleManager, got.Role)
	assert.True(t, got.KYCVerified)
	assert.Equal(t, "a@x.io", got.Email)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))

	bad := domain.Role("root")
	_, err = svc.Update(ctx, "u1", Patch{Role: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalid)

	_, err = svc.Update(ctx, "missing", Patch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newLocalService(t)
	_, err := svc.Create(ctx, domain.UserInput{ID: "u1", Name: "A", Email: "a@x.io", Role: domain.RoleSeller})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1"))
	require.NoError(t, svc.Delete(ctx, "u1"))
	_, err = svc.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, " "), domain.ErrInvalid)
}

func TestService_CreateValidates(t *testing.T) {
	_, err := newLocalService(t).Create(context.Background(), domain.UserInput{Name: "A", Email: "nope", Role: domain.RoleSeller})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}
