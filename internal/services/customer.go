package services

import (
	"context"

	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/repositories"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/types"
)

type CustomerServiceInterface interface {
	CreateCustomer(ctx context.Context, data dto.CreateCustomerDTO) (*dto.CustomerDTO, error)
	FindCustomer(ctx context.Context, id uint64) (*dto.CustomerDTO, error)
	GetCustomerList(ctx context.Context, filter types.Filter) ([]dto.CustomerDTO, uint64, error)
}

type CustomerService struct {
	customerRepo repositories.CustomerRepositoryInterface
	logger       *zap.Logger
}

func NewCustomerService(customerRepo repositories.CustomerRepositoryInterface, logger *zap.Logger) CustomerServiceInterface {
	return &CustomerService{customerRepo: customerRepo, logger: logger}
}

func (s *CustomerService) CreateCustomer(ctx context.Context, data dto.CreateCustomerDTO) (*dto.CustomerDTO, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	id, err := s.customerRepo.Create(ctx, data.Name, data.Phone)
	if err != nil {
		s.logger.Error("Ошибка создания клиента", zap.Error(err))
		return nil, err
	}
	return &dto.CustomerDTO{ID: id, Name: data.Name, Phone: data.Phone}, nil
}

func (s *CustomerService) FindCustomer(ctx context.Context, id uint64) (*dto.CustomerDTO, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("клиент с id=%d не найден", id)
	}
	return &dto.CustomerDTO{ID: customer.ID, Name: customer.Name, Phone: customer.Phone}, nil
}

func (s *CustomerService) GetCustomerList(ctx context.Context, filter types.Filter) ([]dto.CustomerDTO, uint64, error) {
	list, total, err := s.customerRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	result := make([]dto.CustomerDTO, 0, len(list))
	for _, c := range list {
		result = append(result, dto.CustomerDTO{ID: c.ID, Name: c.Name, Phone: c.Phone})
	}
	return result, total, nil
}
