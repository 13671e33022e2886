package service

import (
	"context"
	"errors"

	"feedstock/internal/apierror"
	"feedstock/internal/dto"
	"feedstock/internal/model"
	"feedstock/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierService interface {
	Create(ctx context.Context, req dto.SupplierRequest) (*model.Supplier, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	List(ctx context.Context) ([]model.Supplier, error)
	Update(ctx context.Context, id uuid.UUID, req dto.SupplierRequest) (*model.Supplier, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type supplierService struct {
	repo repository.SupplierRepository
}

func NewSupplierService(repo repository.SupplierRepository) SupplierService {
	return &supplierService{repo: repo}
}

func (s *supplierService) Create(ctx context.Context, req dto.SupplierRequest) (*model.Supplier, error) {
	sup := &model.Supplier{
		Name:   req.Name,
		TaxID:  req.TaxID,
		Active: true,
	}
	if req.Phone != "" {
		sup.Phone = &req.Phone
	}
	if req.Email != "" {
		sup.Email = &req.Email
	}
	if req.Address != "" {
		sup.Address = &req.Address
	}
	if err := s.repo.Create(ctx, sup); err != nil {
		return nil, apierror.Storage("supplier.create", err)
	}
	return sup, nil
}

func (s *supplierService) Get(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	sup, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("supplier", id.String())
	}
	if err != nil {
		return nil, apierror.Storage("supplier.find", err)
	}
	return sup, nil
}

func (s *supplierService) List(ctx context.Context) ([]model.Supplier, error) {
	suppliers, err := s.repo.List(ctx)
	if err != nil {
		return nil, apierror.Storage("supplier.list", err)
	}
	return suppliers, nil
}

func (s *supplierService) Update(ctx context.Context, id uuid.UUID, req dto.SupplierRequest) (*model.Supplier, error) {
	sup, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sup.Name = req.Name
	sup.TaxID = req.TaxID
	if req.Phone != "" {
		sup.Phone = &req.Phone
	}
	if req.Email != "" {
		sup.Email = &req.Email
	}
	if req.Address != "" {
		sup.Address = &req.Address
	}
	if err := s.repo.Update(ctx, sup); err != nil {
		return nil, apierror.Storage("supplier.update", err)
	}
	return sup, nil
}

func (s *supplierService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return apierror.Storage("supplier.delete", err)
	}
	return nil
}
