package services

import (
	"context"

	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/repositories"
)

type UserServiceInterface interface {
	GetTechnicians(ctx context.Context, onlyActive bool) ([]dto.TechnicianDTO, error)
}

type UserService struct {
	userRepo repositories.UserRepositoryInterface
	logger   *zap.Logger
}

func NewUserService(userRepo repositories.UserRepositoryInterface, logger *zap.Logger) UserServiceInterface {
	return &UserService{userRepo: userRepo, logger: logger}
}

func (s *UserService) GetTechnicians(ctx context.Context, onlyActive bool) ([]dto.TechnicianDTO, error) {
	technicians, err := s.userRepo.ListTechnicians(ctx, onlyActive)
	if err != nil {
		return nil, err
	}

	result := make([]dto.TechnicianDTO, 0, len(technicians))
	for _, t := range technicians {
		result = append(result, dto.TechnicianDTO{ID: t.ID, Fio: t.Fio, Status: t.Status})
	}
	return result, nil
}
