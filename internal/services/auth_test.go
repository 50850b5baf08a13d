package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/service"
	"repair-system/pkg/utils"
)

func newAuthFixture(t *testing.T) (AuthServiceInterface, *fakeCache) {
	t.Helper()
	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)

	userRepo := newFakeUserRepo(
		entities.User{ID: 1, Fio: "Админ", Login: "admin", Password: hash,
			Role: entities.RoleAdministrator, Status: entities.UserStatusActive},
		entities.User{ID: 2, Fio: "Уволенный", Login: "fired", Password: hash,
			Role: entities.RoleTechnician, Status: entities.UserStatusInactive},
	)
	cache := newFakeCache()
	jwtSvc := service.NewJWTService("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(userRepo, cache, jwtSvc, zap.NewNop()), cache
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)

	result, err := svc.Login(adminCtx(), dto.LoginDTO{Login: "admin", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, uint64(1), result.User.ID)
	assert.Equal(t, entities.RoleAdministrator, result.User.Role)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)

	t.Run("неизвестный логин", func(t *testing.T) {
		_, err := svc.Login(adminCtx(), dto.LoginDTO{Login: "ghost", Password: "secret123"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("неверный пароль", func(t *testing.T) {
		_, err := svc.Login(adminCtx(), dto.LoginDTO{Login: "admin", Password: "wrongpass"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("неактивный пользователь", func(t *testing.T) {
		_, err := svc.Login(adminCtx(), dto.LoginDTO{Login: "fired", Password: "secret123"})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestLogin_Lockout(t *testing.T) {
	svc, cache := newAuthFixture(t)

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := svc.Login(adminCtx(), dto.LoginDTO{Login: "admin", Password: "wrongpass"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	// Счётчик исчерпан: даже верный пароль не проходит.
	_, err := svc.Login(adminCtx(), dto.LoginDTO{Login: "admin", Password: "secret123"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidCredentials)

	// Истечение окна блокировки снимает запрет и успешный вход
	// сбрасывает счётчик.
	require.NoError(t, cache.Del(adminCtx(), fmt.Sprintf("login_attempts:%s", "admin")))
	_, err = svc.Login(adminCtx(), dto.LoginDTO{Login: "admin", Password: "secret123"})
	require.NoError(t, err)
}

func TestRefresh(t *testing.T) {
	svc, _ := newAuthFixture(t)

	login, err := svc.Login(adminCtx(), dto.LoginDTO{Login: "admin", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(adminCtx(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, uint64(1), refreshed.User.ID)

	t.Run("access-токен не годится для обновления", func(t *testing.T) {
		_, err := svc.Refresh(adminCtx(), login.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("мусорный токен", func(t *testing.T) {
		_, err := svc.Refresh(adminCtx(), "not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestGetProfile(t *testing.T) {
	svc, _ := newAuthFixture(t)

	profile, err := svc.GetProfile(userCtx(1, entities.RoleAdministrator))
	require.NoError(t, err)
	assert.Equal(t, "Админ", profile.Fio)

	_, err = svc.GetProfile(userCtx(99, entities.RoleAdministrator))
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
