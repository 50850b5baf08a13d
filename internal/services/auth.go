package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/repositories"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/service"
	"repair-system/pkg/utils"
)

const (
	maxLoginAttempts     = 5
	loginLockoutDuration = 15 * time.Minute
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.LoginResponseDTO, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponseDTO, error)
	GetProfile(ctx context.Context) (*dto.ShortUserDTO, error)
}

type AuthService struct {
	userRepo   repositories.UserRepositoryInterface
	cacheRepo  repositories.CacheRepositoryInterface
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	jwtService service.JWTService,
	logger *zap.Logger,
) AuthServiceInterface {
	return &AuthService{
		userRepo:   userRepo,
		cacheRepo:  cacheRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.LoginResponseDTO, error) {
	logger := s.logger.With(zap.String("login", payload.Login))

	// Блокировка по количеству неудачных попыток.
	lockoutKey := fmt.Sprintf("login_attempts:%s", payload.Login)
	attemptsStr, _ := s.cacheRepo.Get(ctx, lockoutKey)
	if attempts, _ := strconv.Atoi(attemptsStr); attempts >= maxLoginAttempts {
		logger.Warn("Слишком много неудачных попыток входа")
		return nil, apperrors.NewHttpError(
			http.StatusTooManyRequests,
			fmt.Sprintf("Слишком много попыток. Попробуйте через %.0f минут.", loginLockoutDuration.Minutes()),
			nil,
			nil,
		)
	}

	user, err := s.userRepo.FindByLogin(ctx, payload.Login)
	if err != nil {
		s.registerFailedAttempt(ctx, lockoutKey)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := utils.ComparePasswords(user.Password, payload.Password); err != nil {
		s.registerFailedAttempt(ctx, lockoutKey)
		logger.Warn("Неверный пароль")
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.Status != entities.UserStatusActive {
		logger.Warn("Попытка входа неактивного пользователя")
		return nil, apperrors.ErrForbidden
	}

	if err := s.cacheRepo.Del(ctx, lockoutKey); err != nil {
		logger.Warn("Не удалось сбросить счётчик попыток входа", zap.Error(err))
	}

	return s.issueTokens(user)
}

// registerFailedAttempt перезаписывает счётчик с окном блокировки:
// каждая неудача продлевает окно.
func (s *AuthService) registerFailedAttempt(ctx context.Context, lockoutKey string) {
	attemptsStr, _ := s.cacheRepo.Get(ctx, lockoutKey)
	attempts, _ := strconv.Atoi(attemptsStr)
	if err := s.cacheRepo.Set(ctx, lockoutKey, strconv.Itoa(attempts+1), loginLockoutDuration); err != nil {
		s.logger.Warn("Не удалось сохранить счётчик попыток входа", zap.Error(err))
	}
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponseDTO, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || !claims.IsRefreshToken {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	if user.Status != entities.UserStatusActive {
		return nil, apperrors.ErrForbidden
	}

	return s.issueTokens(user)
}

func (s *AuthService) GetProfile(ctx context.Context) (*dto.ShortUserDTO, error) {
	userID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("пользователь не найден")
	}
	return &dto.ShortUserDTO{ID: user.ID, Fio: user.Fio, Role: user.Role}, nil
}

func (s *AuthService) issueTokens(user *entities.User) (*dto.LoginResponseDTO, error) {
	accessToken, refreshToken, err := s.jwtService.GenerateTokens(user.ID, user.Role)
	if err != nil {
		s.logger.Error("Ошибка генерации токенов", zap.Error(err))
		return nil, apperrors.NewInternalError("не удалось выпустить токены")
	}

	return &dto.LoginResponseDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         dto.ShortUserDTO{ID: user.ID, Fio: user.Fio, Role: user.Role},
	}, nil
}
