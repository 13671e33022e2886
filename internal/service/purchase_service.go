package service

import (
	"context"
	"encoding/json"
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

// PurchaseService orchestrates invoice entry and every line-level mutation,
// driving the ledger recalculation and the recipe cost cascade for each raw
// material touched.
type PurchaseService interface {
	RecordPurchase(ctx context.Context, farmID, actorID uuid.UUID, req dto.PurchaseCreateRequest) (*model.Purchase, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Purchase, error)
	ListByFarm(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.Purchase, error)

	AddLine(ctx context.Context, purchaseID, actorID uuid.UUID, req dto.PurchaseLineRequest) (*model.Purchase, error)
	EditLine(ctx context.Context, lineID, actorID uuid.UUID, req dto.PurchaseLineUpdateRequest) (*model.Purchase, error)
	DeleteLine(ctx context.Context, lineID, actorID uuid.UUID) error

	DeleteHeader(ctx context.Context, id, actorID uuid.UUID) error
	RestoreHeader(ctx context.Context, id, actorID uuid.UUID) error
}

type purchaseService struct {
	purchases    repository.PurchaseRepository
	productions  repository.ProductionRepository
	materials    repository.RawMaterialRepository
	suppliers    repository.SupplierRepository
	priceChanges repository.PriceChangeRepository
	ledgerRows   repository.LedgerRepository
	audit        repository.AuditRepository
	ledger       LedgerService
	recipes      RecipeService
	tracker      RecalcTracker // optional
}

func NewPurchaseService(
	purchases repository.PurchaseRepository,
	productions repository.ProductionRepository,
	materials repository.RawMaterialRepository,
	suppliers repository.SupplierRepository,
	priceChanges repository.PriceChangeRepository,
	ledgerRows repository.LedgerRepository,
	audit repository.AuditRepository,
	ledger LedgerService,
	recipes RecipeService,
	tracker RecalcTracker,
) PurchaseService {
	return &purchaseService{
		purchases:    purchases,
		productions:  productions,
		materials:    materials,
		suppliers:    suppliers,
		priceChanges: priceChanges,
		ledgerRows:   ledgerRows,
		audit:        audit,
		ledger:       ledger,
		recipes:      recipes,
		tracker:      tracker,
	}
}

func (s *purchaseService) RecordPurchase(ctx context.Context, farmID, actorID uuid.UUID, req dto.PurchaseCreateRequest) (*model.Purchase, error) {
	supplier, err := s.suppliers.FindByID(ctx, req.SupplierID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("supplier", req.SupplierID.String())
	}
	if err != nil {
		return nil, apierror.Storage("purchase.find_supplier", err)
	}
	if !supplier.Active {
		return nil, apierror.Validationf("supplier %s is inactive", supplier.Name)
	}

	// Pre-flight: resolve every material and validate every subtotal before
	// writing anything.
	priceBefore := make(map[uuid.UUID]decimal.Decimal, len(req.Lines))
	total := decimal.Zero
	for i, l := range req.Lines {
		mat, err := s.materials.FindByID(ctx, l.RawMaterialID)
		if err != nil || mat.FarmID != farmID || !mat.Active {
			return nil, apierror.Validationf("unknown raw material %s", l.RawMaterialID)
		}
		if expected := l.Quantity.Mul(l.UnitPrice).Round(2); !expected.Equal(l.Subtotal.Round(2)) {
			return nil, apierror.Validationf(
				"line %d subtotal %s does not match quantity x unit price = %s",
				i+1, l.Subtotal.String(), expected.String(),
			)
		}
		if _, seen := priceBefore[l.RawMaterialID]; !seen {
			priceBefore[l.RawMaterialID] = mat.CurrentPrice
		}
		total = total.Add(l.Subtotal)
	}
	if len(req.Lines) == 0 {
		// provisional header, caller-declared total stands
		total = req.Total
	}

	purchase := &model.Purchase{
		FarmID:        farmID,
		SupplierID:    req.SupplierID,
		InvoiceNumber: req.InvoiceNumber,
		Date:          req.Date,
		Total:         total,
		Active:        true,
		CreatedBy:     actorID,
	}
	for _, l := range req.Lines {
		purchase.Lines = append(purchase.Lines, model.PurchaseLine{
			RawMaterialID: l.RawMaterialID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			Subtotal:      l.Subtotal,
			PriceBefore:   priceBefore[l.RawMaterialID],
			Active:        true,
		})
	}

	s.markDirty(ctx, farmID, materialSet(purchase.Lines))
	txErr := runTx(ctx, s.purchases.DB(), func(tx *gorm.DB) error {
		if err := s.purchases.Create(ctx, tx, purchase); err != nil {
			return err
		}
		// Last write wins: processing in line order means the final line for
		// a material fixes its current price.
		for _, l := range purchase.Lines {
			if err := s.applyPriceTx(ctx, tx, l.RawMaterialID, &purchase.SupplierID, l.UnitPrice, model.PriceReasonPurchase); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, apierror.Storage("purchase.create", txErr)
	}

	s.writeAudit(ctx, farmID, actorID, "create", "purchase", purchase.ID, nil, purchase)

	if err := s.cascade(ctx, farmID, materialSet(purchase.Lines)); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *purchaseService) Get(ctx context.Context, id uuid.UUID) (*model.Purchase, error) {
	p, err := s.purchases.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("purchase", id.String())
	}
	if err != nil {
		return nil, apierror.Storage("purchase.find", err)
	}
	return p, nil
}

func (s *purchaseService) ListByFarm(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.Purchase, error) {
	purchases, err := s.purchases.ListByFarm(ctx, farmID, includeInactive)
	if err != nil {
		return nil, apierror.Storage("purchase.list", err)
	}
	return purchases, nil
}

func (s *purchaseService) AddLine(ctx context.Context, purchaseID, actorID uuid.UUID, req dto.PurchaseLineRequest) (*model.Purchase, error) {
	purchase, err := s.Get(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !purchase.Active {
		return nil, apierror.Validationf("purchase %s is deleted", purchaseID)
	}
	mat, err := s.materials.FindByID(ctx, req.RawMaterialID)
	if err != nil || mat.FarmID != purchase.FarmID || !mat.Active {
		return nil, apierror.Validationf("unknown raw material %s", req.RawMaterialID)
	}
	if expected := req.Quantity.Mul(req.UnitPrice).Round(2); !expected.Equal(req.Subtotal.Round(2)) {
		return nil, apierror.Validationf(
			"subtotal %s does not match quantity x unit price = %s",
			req.Subtotal.String(), expected.String(),
		)
	}

	line := &model.PurchaseLine{
		PurchaseID:    purchaseID,
		RawMaterialID: req.RawMaterialID,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		Subtotal:      req.Subtotal,
		PriceBefore:   mat.CurrentPrice,
		Active:        true,
	}
	purchase.Total = purchase.Total.Add(req.Subtotal)

	s.markDirty(ctx, purchase.FarmID, []uuid.UUID{req.RawMaterialID})
	txErr := runTx(ctx, s.purchases.DB(), func(tx *gorm.DB) error {
		if err := s.purchases.CreateLineTx(tx, line); err != nil {
			return err
		}
		if err := s.purchases.UpdateTx(tx, purchase); err != nil {
			return err
		}
		return s.applyPriceTx(ctx, tx, req.RawMaterialID, &purchase.SupplierID, req.UnitPrice, model.PriceReasonPurchase)
	})
	if txErr != nil {
		return nil, apierror.Storage("purchase.add_line", txErr)
	}

	if err := s.cascade(ctx, purchase.FarmID, []uuid.UUID{req.RawMaterialID}); err != nil {
		return nil, err
	}
	return s.Get(ctx, purchaseID)
}

func (s *purchaseService) EditLine(ctx context.Context, lineID, actorID uuid.UUID, req dto.PurchaseLineUpdateRequest) (*model.Purchase, error) {
	line, err := s.purchases.FindLineByID(ctx, lineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("purchase line", lineID.String())
	}
	if err != nil {
		return nil, apierror.Storage("purchase.find_line", err)
	}
	purchase, err := s.Get(ctx, line.PurchaseID)
	if err != nil {
		return nil, err
	}
	if !purchase.Active || !line.Active {
		return nil, apierror.Validationf("purchase line %s is deleted", lineID)
	}
	if expected := req.Quantity.Mul(req.UnitPrice).Round(2); !expected.Equal(req.Subtotal.Round(2)) {
		return nil, apierror.Validationf(
			"subtotal %s does not match quantity x unit price = %s",
			req.Subtotal.String(), expected.String(),
		)
	}

	purchase.Total = purchase.Total.Sub(line.Subtotal).Add(req.Subtotal)
	line.Quantity = req.Quantity
	line.UnitPrice = req.UnitPrice
	line.Subtotal = req.Subtotal

	s.markDirty(ctx, purchase.FarmID, []uuid.UUID{line.RawMaterialID})
	txErr := runTx(ctx, s.purchases.DB(), func(tx *gorm.DB) error {
		if err := s.purchases.UpdateLineTx(tx, line); err != nil {
			return err
		}
		if err := s.purchases.UpdateTx(tx, purchase); err != nil {
			return err
		}
		return s.applyPriceTx(ctx, tx, line.RawMaterialID, &purchase.SupplierID, req.UnitPrice, model.PriceReasonLineEdit)
	})
	if txErr != nil {
		return nil, apierror.Storage("purchase.edit_line", txErr)
	}

	if err := s.cascade(ctx, purchase.FarmID, []uuid.UUID{line.RawMaterialID}); err != nil {
		return nil, err
	}
	return s.Get(ctx, line.PurchaseID)
}

func (s *purchaseService) DeleteLine(ctx context.Context, lineID, actorID uuid.UUID) error {
	line, err := s.purchases.FindLineByID(ctx, lineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NewNotFound("purchase line", lineID.String())
	}
	if err != nil {
		return apierror.Storage("purchase.find_line", err)
	}
	purchase, err := s.Get(ctx, line.PurchaseID)
	if err != nil {
		return err
	}
	if !purchase.Active || !line.Active {
		return apierror.Validationf("purchase line %s is already deleted", lineID)
	}

	consumed, err := s.productions.SumActiveConsumption(ctx, purchase.FarmID, line.RawMaterialID)
	if err != nil {
		return apierror.Storage("purchase.check_consumption", err)
	}
	if consumed.IsPositive() {
		return apierror.Dependencyf(
			"raw material %s is consumed by active production runs (%s in total), delete or edit those first",
			line.RawMaterialID, consumed.String(),
		)
	}

	purchase.Total = purchase.Total.Sub(line.Subtotal)
	s.markDirty(ctx, purchase.FarmID, []uuid.UUID{line.RawMaterialID})
	txErr := runTx(ctx, s.purchases.DB(), func(tx *gorm.DB) error {
		if err := s.purchases.DeactivateLineTx(tx, lineID); err != nil {
			return err
		}
		return s.purchases.UpdateTx(tx, purchase)
	})
	if txErr != nil {
		return apierror.Storage("purchase.delete_line", txErr)
	}

	// The deleted line may have been the material's price source; fall back
	// to the most recent remaining purchase, then to the baseline seed.
	fallback, err := s.purchases.LatestActiveUnitPrice(ctx, purchase.FarmID, line.RawMaterialID)
	if err != nil {
		return apierror.Storage("purchase.latest_price", err)
	}
	newPrice := decimal.Zero
	if fallback != nil {
		newPrice = *fallback
	} else if baseline, err := s.ledgerRows.FindBaseline(ctx, purchase.FarmID, line.RawMaterialID); err == nil {
		newPrice = baseline.InitialPrice
	}
	txErr = runTx(ctx, s.purchases.DB(), func(tx *gorm.DB) error {
		return s.applyPriceTx(ctx, tx, line.RawMaterialID, nil, newPrice, model.PriceReasonLineDelete)
	})
	if txErr != nil {
		return apierror.Storage("purchase.fallback_price", txErr)
	}

	return s.cascade(ctx, purchase.FarmID, []uuid.UUID{line.RawMaterialID})
}

func (s *purchaseService) DeleteHeader(ctx context.Context, id, actorID uuid.UUID) error {
	purchase, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !purchase.Active {
		return apierror.Validationf("purchase %s is already deleted", id)
	}

	activeLines, err := s.purchases.CountActiveLines(ctx, id)
	if err != nil {
		return apierror.Storage("purchase.count_lines", err)
	}
	if activeLines > 0 {
		return apierror.Dependencyf("purchase has %d active lines, delete them first", activeLines)
	}
	activeRuns, err := s.productions.CountActiveByFarm(ctx, purchase.FarmID)
	if err != nil {
		return apierror.Storage("purchase.count_runs", err)
	}
	if activeRuns > 0 {
		return apierror.Dependencyf("farm has %d active production runs, delete them first", activeRuns)
	}

	materials, err := s.purchases.MaterialIDs(ctx, id)
	if err != nil {
		return apierror.Storage("purchase.material_ids", err)
	}
	s.markDirty(ctx, purchase.FarmID, materials)

	now := time.Now()
	if err := s.purchases.SetActive(ctx, id, false, &actorID, &now); err != nil {
		return apierror.Storage("purchase.deactivate", err)
	}
	s.writeAudit(ctx, purchase.FarmID, actorID, "delete", "purchase", id, purchase, nil)

	return s.cascade(ctx, purchase.FarmID, materials)
}

func (s *purchaseService) RestoreHeader(ctx context.Context, id, actorID uuid.UUID) error {
	purchase, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if purchase.Active {
		return apierror.Validationf("purchase %s is not deleted", id)
	}

	materials, err := s.purchases.MaterialIDs(ctx, id)
	if err != nil {
		return apierror.Storage("purchase.material_ids", err)
	}
	s.markDirty(ctx, purchase.FarmID, materials)

	if err := s.purchases.SetActive(ctx, id, true, nil, nil); err != nil {
		return apierror.Storage("purchase.restore", err)
	}
	restored, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.writeAudit(ctx, purchase.FarmID, actorID, "restore", "purchase", id, purchase, restored)

	return s.cascade(ctx, purchase.FarmID, materials)
}

// applyPriceTx moves a material's current price and appends the price-history
// record, inside the caller's transaction. A no-op when the price is equal.
// The read goes through tx: when one purchase carries several lines for the
// same material, each line must see the price the previous line just wrote,
// or the last line cannot win.
func (s *purchaseService) applyPriceTx(ctx context.Context, tx *gorm.DB, materialID uuid.UUID, supplierID *uuid.UUID, newPrice decimal.Decimal, reason string) error {
	mat, err := s.materials.FindByIDTx(tx, materialID)
	if err != nil {
		return err
	}
	if mat.CurrentPrice.Equal(newPrice) {
		return nil
	}

	delta := decimal.Zero
	if !mat.CurrentPrice.IsZero() {
		delta = newPrice.Sub(mat.CurrentPrice).Div(mat.CurrentPrice).Mul(oneHundred).Round(2)
	}
	if err := s.priceChanges.CreateTx(tx, &model.PriceChange{
		RawMaterialID: materialID,
		SupplierID:    supplierID,
		PriceBefore:   mat.CurrentPrice,
		PriceAfter:    newPrice,
		PercentDelta:  delta,
		Reason:        reason,
	}); err != nil {
		return err
	}
	return s.materials.UpdatePriceTx(tx, materialID, newPrice)
}

// markDirty records the touched pairs before the source records commit, so
// the reconciliation sweep repairs the derived rows even if this process
// dies between the commit and the cascade.
func (s *purchaseService) markDirty(ctx context.Context, farmID uuid.UUID, materials []uuid.UUID) {
	if s.tracker == nil {
		return
	}
	for _, materialID := range materials {
		s.tracker.MarkDirty(ctx, farmID, materialID)
	}
}

// cascade re-derives the ledger row and re-prices dependent recipes for each
// material, clearing the dirty mark only once both succeeded.
func (s *purchaseService) cascade(ctx context.Context, farmID uuid.UUID, materials []uuid.UUID) error {
	for _, materialID := range materials {
		if _, err := s.ledger.Recalculate(ctx, farmID, materialID); err != nil {
			return err
		}
		if err := s.recipes.RecalculateRecipesUsing(ctx, materialID); err != nil {
			return err
		}
		if s.tracker != nil {
			s.tracker.ClearDirty(ctx, farmID, materialID)
		}
	}
	return nil
}

func (s *purchaseService) writeAudit(ctx context.Context, farmID, actorID uuid.UUID, action, entity string, entityID uuid.UUID, before, after interface{}) {
	entry := &model.AuditEntry{
		FarmID:   farmID,
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Before:   snapshot(before),
		After:    snapshot(after),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Str("entity_id", entityID.String()).Msg("audit write failed")
	}
}

func snapshot(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func materialSet(lines []model.PurchaseLine) []uuid.UUID {
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
