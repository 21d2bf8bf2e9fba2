package services

import (
	"context"
	"testing"

	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(env *testEnv) *UserService {
	return NewUserService(repositories.NewUserRepository(env.db))
}

func TestUserCreate(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)

	user, err := svc.Create(context.Background(), &CreateUserInput{
		Username: "encoder2",
		Email:    "encoder2@smpc-microfin.ph",
		Password: "strong-password",
		Role:     domain.RoleEncoder,
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleEncoder), user.Role)
	assert.True(t, user.IsActive)

	_, err = svc.Create(context.Background(), &CreateUserInput{
		Username: "encoder2",
		Email:    "other@smpc-microfin.ph",
		Password: "strong-password",
		Role:     domain.RoleEncoder,
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Create(context.Background(), &CreateUserInput{
		Username: "encoder3",
		Email:    "encoder2@smpc-microfin.ph",
		Password: "strong-password",
		Role:     domain.RoleEncoder,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Create(context.Background(), &CreateUserInput{
		Username: "encoder4",
		Email:    "encoder4@smpc-microfin.ph",
		Password: "short",
		Role:     domain.RoleEncoder,
	})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Create(context.Background(), &CreateUserInput{
		Username: "encoder5",
		Email:    "encoder5@smpc-microfin.ph",
		Password: "strong-password",
		Role:     "BOGUS",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLastSuperAdminProtected(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env)

	admin, err := svc.Create(context.Background(), &CreateUserInput{
		Username: "admin1",
		Email:    "admin1@smpc-microfin.ph",
		Password: "strong-password",
		Role:     domain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	// The only super admin cannot be demoted or deactivated
	assert.ErrorIs(t, svc.ChangeRole(context.Background(), admin.ID, domain.RoleViewer), ErrLastSuperAdmin)
	assert.ErrorIs(t, svc.SetActive(context.Background(), admin.ID, false), ErrLastSuperAdmin)

	_, err = svc.Create(context.Background(), &CreateUserInput{
		Username: "admin2",
		Email:    "admin2@smpc-microfin.ph",
		Password: "strong-password",
		Role:     domain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	// With a second super admin the demotion goes through
	require.NoError(t, svc.ChangeRole(context.Background(), admin.ID, domain.RoleViewer))
	reloaded, err := svc.Get(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleViewer), reloaded.Role)
}
