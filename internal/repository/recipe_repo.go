package repository

import (
	"context"

	"feedstock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecipeRepository interface {
	Create(ctx context.Context, tx *gorm.DB, rec *model.Recipe) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Recipe, error)
	FindByCode(ctx context.Context, farmID uuid.UUID, code string) (*model.Recipe, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.Recipe, error)
	UpdateTx(tx *gorm.DB, rec *model.Recipe) error
	ReplaceLinesTx(tx *gorm.DB, recipeID uuid.UUID, lines []model.RecipeLine) error

	// ListUsingMaterial returns every active recipe with at least one line
	// referencing the material, lines preloaded (cost cascade input).
	ListUsingMaterial(ctx context.Context, materialID uuid.UUID) ([]model.Recipe, error)

	// SaveCosts persists the recipe total plus each line's price/cost after a
	// cascade recompute.
	SaveCosts(ctx context.Context, rec *model.Recipe) error

	DB() *gorm.DB
}

type recipeRepo struct{ db *gorm.DB }

func NewRecipeRepository(db *gorm.DB) RecipeRepository { return &recipeRepo{db: db} }

func (r *recipeRepo) Create(ctx context.Context, tx *gorm.DB, rec *model.Recipe) error {
	if tx == nil {
		tx = r.db.WithContext(ctx)
	}
	return tx.Create(rec).Error
}

func (r *recipeRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	var rec model.Recipe
	err := r.db.WithContext(ctx).Preload("Lines").First(&rec, id).Error
	return &rec, err
}

func (r *recipeRepo) FindByCode(ctx context.Context, farmID uuid.UUID, code string) (*model.Recipe, error) {
	var rec model.Recipe
	err := r.db.WithContext(ctx).Preload("Lines").
		Where("farm_id = ? AND code = ?", farmID, code).
		First(&rec).Error
	return &rec, err
}

func (r *recipeRepo) ListByFarm(ctx context.Context, farmID uuid.UUID) ([]model.Recipe, error) {
	var recipes []model.Recipe
	err := r.db.WithContext(ctx).Preload("Lines").
		Where("farm_id = ? AND active = true", farmID).
		Order("code ASC").
		Find(&recipes).Error
	return recipes, err
}

func (r *recipeRepo) UpdateTx(tx *gorm.DB, rec *model.Recipe) error {
	return tx.Omit("Lines").Save(rec).Error
}

func (r *recipeRepo) ReplaceLinesTx(tx *gorm.DB, recipeID uuid.UUID, lines []model.RecipeLine) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&model.RecipeLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].RecipeID = recipeID
	}
	if len(lines) == 0 {
		return nil
	}
	return tx.Create(&lines).Error
}

func (r *recipeRepo) ListUsingMaterial(ctx context.Context, materialID uuid.UUID) ([]model.Recipe, error) {
	var recipes []model.Recipe
	err := r.db.WithContext(ctx).Preload("Lines").
		Joins("JOIN recipe_lines ON recipe_lines.recipe_id = recipes.id").
		Where("recipe_lines.raw_material_id = ? AND recipes.active = true", materialID).
		Distinct("recipes.*").
		Find(&recipes).Error
	return recipes, err
}

func (r *recipeRepo) SaveCosts(ctx context.Context, rec *model.Recipe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Recipe{}).Where("id = ?", rec.ID).
			Update("total_cost", rec.TotalCost).Error; err != nil {
			return err
		}
		for i := range rec.Lines {
			l := &rec.Lines[i]
			if err := tx.Model(&model.RecipeLine{}).Where("id = ?", l.ID).
				Updates(map[string]interface{}{
					"unit_price": l.UnitPrice,
					"cost":       l.Cost,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *recipeRepo) DB() *gorm.DB { return r.db }
