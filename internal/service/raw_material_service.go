package service

import (
	"context"
	"errors"

	"feedstock/internal/apierror"
	"feedstock/internal/dto"
	"feedstock/internal/model"
	"feedstock/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RawMaterialService interface {
	Create(ctx context.Context, farmID uuid.UUID, req dto.RawMaterialCreateRequest) (*model.RawMaterial, error)
	Get(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.RawMaterial, error)
	Update(ctx context.Context, id uuid.UUID, req dto.RawMaterialUpdateRequest) (*model.RawMaterial, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// SetManualPrice is the supervisor correction path: moves current_price
	// outside the purchase flow and cascades dependent recipe costs.
	SetManualPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*model.RawMaterial, error)

	PriceHistory(ctx context.Context, id uuid.UUID, page, limit int) ([]model.PriceChange, int64, error)
}

type rawMaterialService struct {
	materials    repository.RawMaterialRepository
	priceChanges repository.PriceChangeRepository
	recipes      RecipeService
}

func NewRawMaterialService(
	materials repository.RawMaterialRepository,
	priceChanges repository.PriceChangeRepository,
	recipes RecipeService,
) RawMaterialService {
	return &rawMaterialService{materials: materials, priceChanges: priceChanges, recipes: recipes}
}

func (s *rawMaterialService) Create(ctx context.Context, farmID uuid.UUID, req dto.RawMaterialCreateRequest) (*model.RawMaterial, error) {
	if _, err := s.materials.FindByCode(ctx, farmID, req.Code); err == nil {
		return nil, apierror.Validationf("raw material code %q already exists on this farm", req.Code)
	}
	mat := &model.RawMaterial{
		FarmID:       farmID,
		Code:         req.Code,
		Name:         req.Name,
		CurrentPrice: req.InitialPrice,
		Active:       true,
	}
	if err := s.materials.Create(ctx, mat); err != nil {
		return nil, apierror.Storage("material.create", err)
	}
	return mat, nil
}

func (s *rawMaterialService) Get(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	mat, err := s.materials.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("raw material", id.String())
	}
	if err != nil {
		return nil, apierror.Storage("material.find", err)
	}
	return mat, nil
}

func (s *rawMaterialService) ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.RawMaterial, error) {
	materials, err := s.materials.ListByFarm(ctx, farmID)
	if err != nil {
		return nil, apierror.Storage("material.list", err)
	}
	return materials, nil
}

func (s *rawMaterialService) Update(ctx context.Context, id uuid.UUID, req dto.RawMaterialUpdateRequest) (*model.RawMaterial, error) {
	mat, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		mat.Name = *req.Name
	}
	if req.Active != nil {
		mat.Active = *req.Active
	}
	if err := s.materials.Update(ctx, mat); err != nil {
		return nil, apierror.Storage("material.update", err)
	}
	return mat, nil
}

func (s *rawMaterialService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.materials.SoftDelete(ctx, id); err != nil {
		return apierror.Storage("material.delete", err)
	}
	return nil
}

func (s *rawMaterialService) SetManualPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*model.RawMaterial, error) {
	if !price.IsPositive() {
		return nil, apierror.Validationf("price must be > 0, got %s", price.String())
	}
	mat, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if mat.CurrentPrice.Equal(price) {
		return mat, nil
	}

	delta := decimal.Zero
	if !mat.CurrentPrice.IsZero() {
		delta = price.Sub(mat.CurrentPrice).Div(mat.CurrentPrice).Mul(oneHundred).Round(2)
	}
	txErr := runTx(ctx, s.materials.DB(), func(tx *gorm.DB) error {
		if err := s.priceChanges.CreateTx(tx, &model.PriceChange{
			RawMaterialID: id,
			PriceBefore:   mat.CurrentPrice,
			PriceAfter:    price,
			PercentDelta:  delta,
			Reason:        model.PriceReasonManual,
		}); err != nil {
			return err
		}
		return s.materials.UpdatePriceTx(tx, id, price)
	})
	if txErr != nil {
		return nil, apierror.Storage("material.manual_price", txErr)
	}
	mat.CurrentPrice = price

	if err := s.recipes.RecalculateRecipesUsing(ctx, id); err != nil {
		return nil, err
	}
	return mat, nil
}

func (s *rawMaterialService) PriceHistory(ctx context.Context, id uuid.UUID, page, limit int) ([]model.PriceChange, int64, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.priceChanges.ListByMaterial(ctx, id, page, limit)
	if err != nil {
		return nil, 0, apierror.Storage("material.price_history", err)
	}
	return rows, total, nil
}
