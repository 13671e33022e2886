package service

import (
	"context"
	"errors"
	"time"

	"feedstock/internal/apierror"
	"feedstock/internal/dto"
	"feedstock/internal/model"
	"feedstock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionService orchestrates feed production runs: consumption and cost
// snapshots at current prices, the informational under-stock flag, and the
// ledger recalculation for every material a run touches.
type ProductionService interface {
	RecordProduction(ctx context.Context, farmID, actorID uuid.UUID, req dto.ProductionCreateRequest) (*model.ProductionRun, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ProductionRun, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.ProductionRun, error)
	EditProduction(ctx context.Context, id, actorID uuid.UUID, req dto.ProductionUpdateRequest) (*model.ProductionRun, error)
	DeleteProduction(ctx context.Context, id, actorID uuid.UUID) error
	RestoreProduction(ctx context.Context, id, actorID uuid.UUID) error
}

type productionService struct {
	productions repository.ProductionRepository
	recipes     repository.RecipeRepository
	materials   repository.RawMaterialRepository
	ledgerRows  repository.LedgerRepository
	audit       repository.AuditRepository
	ledger      LedgerService
	tracker     RecalcTracker // optional
}

func NewProductionService(
	productions repository.ProductionRepository,
	recipes repository.RecipeRepository,
	materials repository.RawMaterialRepository,
	ledgerRows repository.LedgerRepository,
	audit repository.AuditRepository,
	ledger LedgerService,
	tracker RecalcTracker,
) ProductionService {
	return &productionService{
		productions: productions,
		recipes:     recipes,
		materials:   materials,
		ledgerRows:  ledgerRows,
		audit:       audit,
		ledger:      ledger,
		tracker:     tracker,
	}
}

// buildRun snapshots consumption and cost for the given recipe and batch
// count at current material prices.
func (s *productionService) buildRun(ctx context.Context, farmID, recipeID uuid.UUID, batches decimal.Decimal) (producedWeight, totalCost, costPerKg decimal.Decimal, underStock bool, lines []model.ProductionLine, err error) {
	recipe, ferr := s.recipes.FindByID(ctx, recipeID)
	if errors.Is(ferr, gorm.ErrRecordNotFound) {
		err = apierror.NewNotFound("recipe", recipeID.String())
		return
	}
	if ferr != nil {
		err = apierror.Storage("production.find_recipe", ferr)
		return
	}
	if recipe.FarmID != farmID || !recipe.Active {
		err = apierror.Validationf("unknown recipe %s", recipeID)
		return
	}

	producedWeight = batches.Mul(RecipeBaseWeight)
	totalCost = decimal.Zero
	for _, rl := range recipe.Lines {
		mat, merr := s.materials.FindByID(ctx, rl.RawMaterialID)
		if merr != nil {
			err = apierror.Storage("production.find_material", merr)
			return
		}
		// lineQty is per base weight, so one batch consumes exactly lineQty.
		consumed := rl.Quantity.Mul(batches)
		cost := consumed.Mul(mat.CurrentPrice).Round(2)
		totalCost = totalCost.Add(cost)
		lines = append(lines, model.ProductionLine{
			RawMaterialID: rl.RawMaterialID,
			Quantity:      consumed,
			UnitPrice:     mat.CurrentPrice,
			Cost:          cost,
		})

		available := decimal.Zero
		if row, rerr := s.ledgerRows.FindRow(ctx, farmID, rl.RawMaterialID); rerr == nil {
			available = row.RealQty
		}
		if consumed.GreaterThan(available) {
			underStock = true
		}
	}

	costPerKg = decimal.Zero
	if producedWeight.IsPositive() {
		costPerKg = totalCost.Div(producedWeight).Round(4)
	}
	return
}

func (s *productionService) RecordProduction(ctx context.Context, farmID, actorID uuid.UUID, req dto.ProductionCreateRequest) (*model.ProductionRun, error) {
	if !req.Batches.IsPositive() {
		return nil, apierror.Validationf("batches must be > 0, got %s", req.Batches.String())
	}

	weight, totalCost, costPerKg, underStock, lines, err := s.buildRun(ctx, farmID, req.RecipeID, req.Batches)
	if err != nil {
		return nil, err
	}

	run := &model.ProductionRun{
		FarmID:         farmID,
		RecipeID:       req.RecipeID,
		Date:           req.Date,
		Batches:        req.Batches,
		ProducedWeight: weight,
		TotalCost:      totalCost,
		CostPerKg:      costPerKg,
		UnderStock:     underStock,
		Active:         true,
		CreatedBy:      actorID,
		Lines:          lines,
	}
	s.markDirty(ctx, farmID, productionMaterialSet(lines))
	if err := s.productions.Create(ctx, nil, run); err != nil {
		return nil, apierror.Storage("production.create", err)
	}
	if underStock {
		log.Warn().
			Str("run_id", run.ID.String()).
			Str("farm_id", farmID.String()).
			Msg("production run recorded under stock")
	}

	s.writeAudit(ctx, farmID, actorID, "create", run.ID, nil, run)

	if err := s.recalc(ctx, farmID, productionMaterialSet(lines)); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *productionService) Get(ctx context.Context, id uuid.UUID) (*model.ProductionRun, error) {
	run, err := s.productions.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("production run", id.String())
	}
	if err != nil {
		return nil, apierror.Storage("production.find", err)
	}
	return run, nil
}

func (s *productionService) ListByFarm(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.ProductionRun, error) {
	runs, err := s.productions.ListByFarm(ctx, farmID, includeInactive)
	if err != nil {
		return nil, apierror.Storage("production.list", err)
	}
	return runs, nil
}

func (s *productionService) EditProduction(ctx context.Context, id, actorID uuid.UUID, req dto.ProductionUpdateRequest) (*model.ProductionRun, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !run.Active {
		return nil, apierror.Validationf("production run %s is deleted", id)
	}

	previousMaterials := productionMaterialSet(run.Lines)

	if req.RecipeID != nil {
		run.RecipeID = *req.RecipeID
	}
	if req.Date != nil {
		run.Date = *req.Date
	}
	if req.Batches != nil {
		run.Batches = *req.Batches
	}
	if !run.Batches.IsPositive() {
		return nil, apierror.Validationf("batches must be > 0, got %s", run.Batches.String())
	}

	// Recompute from scratch at current prices.
	weight, totalCost, costPerKg, underStock, lines, err := s.buildRun(ctx, run.FarmID, run.RecipeID, run.Batches)
	if err != nil {
		return nil, err
	}
	run.ProducedWeight = weight
	run.TotalCost = totalCost
	run.CostPerKg = costPerKg
	run.UnderStock = underStock

	// Union of old and new materials: a material dropped from the run must be
	// recalculated too so its consumption is restored.
	union := previousMaterials
	seen := make(map[uuid.UUID]struct{}, len(union))
	for _, m := range union {
		seen[m] = struct{}{}
	}
	for _, m := range productionMaterialSet(lines) {
		if _, ok := seen[m]; !ok {
			union = append(union, m)
		}
	}

	s.markDirty(ctx, run.FarmID, union)
	txErr := runTx(ctx, s.productions.DB(), func(tx *gorm.DB) error {
		if err := s.productions.UpdateTx(tx, run); err != nil {
			return err
		}
		return s.productions.ReplaceLinesTx(tx, run.ID, lines)
	})
	if txErr != nil {
		return nil, apierror.Storage("production.edit", txErr)
	}
	run.Lines = lines

	if err := s.recalc(ctx, run.FarmID, union); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *productionService) DeleteProduction(ctx context.Context, id, actorID uuid.UUID) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !run.Active {
		return apierror.Validationf("production run %s is already deleted", id)
	}

	s.markDirty(ctx, run.FarmID, productionMaterialSet(run.Lines))
	now := time.Now()
	if err := s.productions.SetActive(ctx, id, false, &actorID, &now); err != nil {
		return apierror.Storage("production.deactivate", err)
	}
	s.writeAudit(ctx, run.FarmID, actorID, "delete", id, run, nil)

	// Recalculation restores the consumed quantities: only active runs count.
	return s.recalc(ctx, run.FarmID, productionMaterialSet(run.Lines))
}

func (s *productionService) RestoreProduction(ctx context.Context, id, actorID uuid.UUID) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if run.Active {
		return apierror.Validationf("production run %s is not deleted", id)
	}

	s.markDirty(ctx, run.FarmID, productionMaterialSet(run.Lines))
	if err := s.productions.SetActive(ctx, id, true, nil, nil); err != nil {
		return apierror.Storage("production.restore", err)
	}
	restored, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.writeAudit(ctx, run.FarmID, actorID, "restore", id, run, restored)

	return s.recalc(ctx, run.FarmID, productionMaterialSet(run.Lines))
}

// markDirty records the touched pairs before the run is written, so the
// reconciliation sweep repairs the ledger even if this process dies between
// the write and the recalculation.
func (s *productionService) markDirty(ctx context.Context, farmID uuid.UUID, materials []uuid.UUID) {
	if s.tracker == nil {
		return
	}
	for _, materialID := range materials {
		s.tracker.MarkDirty(ctx, farmID, materialID)
	}
}

func (s *productionService) recalc(ctx context.Context, farmID uuid.UUID, materials []uuid.UUID) error {
	for _, materialID := range materials {
		if _, err := s.ledger.Recalculate(ctx, farmID, materialID); err != nil {
			return err
		}
		if s.tracker != nil {
			s.tracker.ClearDirty(ctx, farmID, materialID)
		}
	}
	return nil
}

func (s *productionService) writeAudit(ctx context.Context, farmID, actorID uuid.UUID, action string, entityID uuid.UUID, before, after interface{}) {
	entry := &model.AuditEntry{
		FarmID:   farmID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "production_run",
		EntityID: entityID,
		Before:   snapshot(before),
		After:    snapshot(after),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Str("entity_id", entityID.String()).Msg("audit write failed")
	}
}

func productionMaterialSet(lines []model.ProductionLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	var out []uuid.UUID
	for _, l := range lines {
		if _, ok := seen[l.RawMaterialID]; ok {
			continue
		}
		seen[l.RawMaterialID] = struct{}{}
		out = append(out, l.RawMaterialID)
	}
	return out
}
