package service

import (
	"context"
	"errors"

	"feedstock/internal/apierror"
	"feedstock/internal/dto"
	"feedstock/internal/model"
	"feedstock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecipeBaseWeight is the fixed mix weight every formula is expressed
// against: line quantities sum to this, and one production batch yields
// exactly this weight.
var RecipeBaseWeight = decimal.NewFromInt(1000)

var oneHundred = decimal.NewFromInt(100)

// RecipeService manages feed formulas and keeps their costs in sync with
// raw-material prices (the cost cascade).
type RecipeService interface {
	CreateOrUpdate(ctx context.Context, farmID uuid.UUID, req dto.RecipeRequest) (*model.Recipe, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Recipe, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.Recipe, error)
	RecalculateRecipe(ctx context.Context, recipeID uuid.UUID) (*model.Recipe, error)
	RecalculateRecipesUsing(ctx context.Context, materialID uuid.UUID) error
}

type recipeService struct {
	recipes   repository.RecipeRepository
	materials repository.RawMaterialRepository
}

func NewRecipeService(recipes repository.RecipeRepository, materials repository.RawMaterialRepository) RecipeService {
	return &recipeService{recipes: recipes, materials: materials}
}

func (s *recipeService) CreateOrUpdate(ctx context.Context, farmID uuid.UUID, req dto.RecipeRequest) (*model.Recipe, error) {
	totalWeight := decimal.Zero
	for _, l := range req.Lines {
		totalWeight = totalWeight.Add(l.Quantity)
	}
	if !totalWeight.Equal(RecipeBaseWeight) {
		return nil, apierror.Validationf(
			"recipe line weights must sum to %s, got %s",
			RecipeBaseWeight.String(), totalWeight.String(),
		)
	}

	lines := make([]model.RecipeLine, 0, len(req.Lines))
	total := decimal.Zero
	for _, l := range req.Lines {
		mat, err := s.materials.FindByID(ctx, l.RawMaterialID)
		if err != nil || mat.FarmID != farmID || !mat.Active {
			return nil, apierror.Validationf("unknown raw material %s", l.RawMaterialID)
		}
		cost := l.Quantity.Mul(mat.CurrentPrice).Round(2)
		lines = append(lines, model.RecipeLine{
			RawMaterialID: l.RawMaterialID,
			Quantity:      l.Quantity,
			Percentage:    l.Quantity.Div(RecipeBaseWeight).Mul(oneHundred).Round(4),
			UnitPrice:     mat.CurrentPrice,
			Cost:          cost,
		})
		total = total.Add(cost)
	}

	existing, err := s.recipes.FindByCode(ctx, farmID, req.Code)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec := &model.Recipe{
			FarmID:    farmID,
			Code:      req.Code,
			Name:      req.Name,
			Category:  req.Category,
			TotalCost: total,
			Active:    true,
			Lines:     lines,
		}
		if err := s.recipes.Create(ctx, nil, rec); err != nil {
			return nil, apierror.Storage("recipe.create", err)
		}
		return rec, nil
	case err != nil:
		return nil, apierror.Storage("recipe.find_by_code", err)
	}

	existing.Name = req.Name
	existing.Category = req.Category
	existing.TotalCost = total
	txErr := runTx(ctx, s.recipes.DB(), func(tx *gorm.DB) error {
		if err := s.recipes.UpdateTx(tx, existing); err != nil {
			return err
		}
		return s.recipes.ReplaceLinesTx(tx, existing.ID, lines)
	})
	if txErr != nil {
		return nil, apierror.Storage("recipe.update", txErr)
	}
	existing.Lines = lines
	return existing, nil
}

func (s *recipeService) Get(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	rec, err := s.recipes.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("recipe", id.String())
	}
	if err != nil {
		return nil, apierror.Storage("recipe.find", err)
	}
	return rec, nil
}

func (s *recipeService) ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.Recipe, error) {
	recipes, err := s.recipes.ListByFarm(ctx, farmID)
	if err != nil {
		return nil, apierror.Storage("recipe.list", err)
	}
	return recipes, nil
}

func (s *recipeService) RecalculateRecipe(ctx context.Context, recipeID uuid.UUID) (*model.Recipe, error) {
	rec, err := s.recipes.FindByID(ctx, recipeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("recipe", recipeID.String())
	}
	if err != nil {
		return nil, apierror.Storage("recipe.find", err)
	}
	if err := s.reprice(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *recipeService) RecalculateRecipesUsing(ctx context.Context, materialID uuid.UUID) error {
	recipes, err := s.recipes.ListUsingMaterial(ctx, materialID)
	if err != nil {
		return apierror.Storage("recipe.list_using", err)
	}
	for i := range recipes {
		if err := s.reprice(ctx, &recipes[i]); err != nil {
			return err
		}
		log.Debug().
			Str("recipe_id", recipes[i].ID.String()).
			Str("total_cost", recipes[i].TotalCost.String()).
			Msg("recipe cost cascaded")
	}
	return nil
}

// reprice refreshes every line at its material's current price and persists
// the new costs.
func (s *recipeService) reprice(ctx context.Context, rec *model.Recipe) error {
	total := decimal.Zero
	for i := range rec.Lines {
		l := &rec.Lines[i]
		mat, err := s.materials.FindByID(ctx, l.RawMaterialID)
		if err != nil {
			return apierror.Storage("recipe.reprice_material", err)
		}
		l.UnitPrice = mat.CurrentPrice
		l.Cost = l.Quantity.Mul(mat.CurrentPrice).Round(2)
		total = total.Add(l.Cost)
	}
	rec.TotalCost = total
	if err := s.recipes.SaveCosts(ctx, rec); err != nil {
		return apierror.Storage("recipe.save_costs", err)
	}
	return nil
}
