package service

import (
	"context"
	"errors"

	"feedstock/internal/apierror"
	"feedstock/internal/model"
	"feedstock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService re-derives and persists the per-(farm, material) ledger row.
// Recalculate is the single entry point every orchestrated mutation funnels
// through; SetRealQuantity is the version-guarded manual correction path.
type LedgerService interface {
	Recalculate(ctx context.Context, farmID, materialID uuid.UUID) (*model.StockLedger, error)
	SetRealQuantity(ctx context.Context, farmID, materialID uuid.UUID, qty decimal.Decimal) (*model.StockLedger, error)
	SetBaseline(ctx context.Context, farmID, materialID uuid.UUID, qty, price decimal.Decimal) (*model.StockLedger, error)
	GetRow(ctx context.Context, farmID, materialID uuid.UUID) (*model.StockLedger, error)
	GetFarmLedger(ctx context.Context, farmID uuid.UUID) ([]model.StockLedger, error)
}

type ledgerService struct {
	rows        repository.LedgerRepository
	purchases   repository.PurchaseRepository
	productions repository.ProductionRepository
	notifier    AlertNotifier // optional
}

func NewLedgerService(
	rows repository.LedgerRepository,
	purchases repository.PurchaseRepository,
	productions repository.ProductionRepository,
	notifier AlertNotifier,
) LedgerService {
	return &ledgerService{
		rows:        rows,
		purchases:   purchases,
		productions: productions,
		notifier:    notifier,
	}
}

// loadInputs aggregates the active source records for one pair. Everything is
// read fresh; nothing is carried over from the stored row except the manual
// delta, which Recalculate handles itself.
func (s *ledgerService) loadInputs(ctx context.Context, farmID, materialID uuid.UUID) (LedgerInputs, error) {
	var in LedgerInputs

	baseline, err := s.rows.FindBaseline(ctx, farmID, materialID)
	switch {
	case err == nil:
		in.BaselineQty = baseline.InitialQty
		in.BaselinePrice = baseline.InitialPrice
	case errors.Is(err, gorm.ErrRecordNotFound):
		// no baseline seeded, zero semantics
	default:
		return in, apierror.Storage("ledger.baseline", err)
	}

	if in.PurchasedQty, err = s.purchases.SumActiveQty(ctx, farmID, materialID); err != nil {
		return in, apierror.Storage("ledger.sum_purchases", err)
	}
	if in.ConsumedQty, err = s.productions.SumActiveConsumption(ctx, farmID, materialID); err != nil {
		return in, apierror.Storage("ledger.sum_consumption", err)
	}
	if in.Events, err = s.purchases.ListActivePriceEvents(ctx, farmID, materialID); err != nil {
		return in, apierror.Storage("ledger.price_events", err)
	}
	return in, nil
}

func (s *ledgerService) Recalculate(ctx context.Context, farmID, materialID uuid.UUID) (*model.StockLedger, error) {
	in, err := s.loadInputs(ctx, farmID, materialID)
	if err != nil {
		return nil, err
	}
	derived := DeriveLedger(in)

	row, err := s.rows.FindRow(ctx, farmID, materialID)
	isNew := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		isNew = true
		row = &model.StockLedger{FarmID: farmID, RawMaterialID: materialID}
	case err != nil:
		return nil, apierror.Storage("ledger.find_row", err)
	}

	wasCritical := !isNew && !row.RealQty.IsPositive()

	// The operator's correction survives every automatic recalculation: the
	// delta between real and system is re-applied on top of the fresh system
	// quantity.
	manualDelta := decimal.Zero
	if !isNew {
		manualDelta = row.RealQty.Sub(row.SystemQty)
	}

	row.AccumulatedQty = derived.AccumulatedQty
	row.SystemQty = derived.SystemQty
	row.RealQty = derived.SystemQty.Add(manualDelta)
	row.WarehousePrice = derived.WarehousePrice
	row.Shrinkage = Shrinkage(row.SystemQty, row.RealQty)
	row.StockValue = StockValue(row.RealQty, row.WarehousePrice)

	if isNew {
		if err := s.rows.Create(ctx, row); err != nil {
			return nil, apierror.Storage("ledger.create_row", err)
		}
	} else if err := s.rows.SaveDerived(ctx, row); err != nil {
		return nil, apierror.Storage("ledger.save_row", err)
	}

	s.notifyLevel(ctx, row, wasCritical)
	return row, nil
}

func (s *ledgerService) SetRealQuantity(ctx context.Context, farmID, materialID uuid.UUID, qty decimal.Decimal) (*model.StockLedger, error) {
	if qty.IsNegative() {
		return nil, apierror.Validationf("real quantity cannot be negative, got %s", qty.String())
	}

	in, err := s.loadInputs(ctx, farmID, materialID)
	if err != nil {
		return nil, err
	}
	derived := DeriveLedger(in)

	row, err := s.rows.FindRow(ctx, farmID, materialID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First write for the pair, no race possible on creation.
		row = &model.StockLedger{
			FarmID:         farmID,
			RawMaterialID:  materialID,
			AccumulatedQty: derived.AccumulatedQty,
			SystemQty:      derived.SystemQty,
			RealQty:        qty,
			WarehousePrice: derived.WarehousePrice,
			Shrinkage:      Shrinkage(derived.SystemQty, qty),
			StockValue:     StockValue(qty, derived.WarehousePrice),
			Version:        1,
		}
		if err := s.rows.Create(ctx, row); err != nil {
			return nil, apierror.Storage("ledger.create_row", err)
		}
		s.notifyLevel(ctx, row, false)
		return row, nil
	}
	if err != nil {
		return nil, apierror.Storage("ledger.find_row", err)
	}

	wasCritical := !row.RealQty.IsPositive()
	expected := row.Version

	row.AccumulatedQty = derived.AccumulatedQty
	row.SystemQty = derived.SystemQty
	row.RealQty = qty
	row.WarehousePrice = derived.WarehousePrice
	row.Shrinkage = Shrinkage(row.SystemQty, qty)
	row.StockValue = StockValue(qty, row.WarehousePrice)

	matched, err := s.rows.UpdateRealQtyGuarded(ctx, row, expected)
	if err != nil {
		return nil, apierror.Storage("ledger.guarded_update", err)
	}
	if !matched {
		return nil, apierror.ErrConcurrencyConflict
	}
	row.Version = expected + 1

	s.notifyLevel(ctx, row, wasCritical)
	return row, nil
}

func (s *ledgerService) SetBaseline(ctx context.Context, farmID, materialID uuid.UUID, qty, price decimal.Decimal) (*model.StockLedger, error) {
	if qty.IsNegative() || price.IsNegative() {
		return nil, apierror.Validationf("baseline quantity and price must be >= 0")
	}
	b := &model.StockBaseline{
		FarmID:        farmID,
		RawMaterialID: materialID,
		InitialQty:    qty,
		InitialPrice:  price,
	}
	if err := s.rows.UpsertBaseline(ctx, b); err != nil {
		return nil, apierror.Storage("ledger.upsert_baseline", err)
	}
	return s.Recalculate(ctx, farmID, materialID)
}

func (s *ledgerService) GetRow(ctx context.Context, farmID, materialID uuid.UUID) (*model.StockLedger, error) {
	row, err := s.rows.FindRow(ctx, farmID, materialID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NewNotFound("ledger row", materialID.String())
	}
	if err != nil {
		return nil, apierror.Storage("ledger.find_row", err)
	}
	return row, nil
}

func (s *ledgerService) GetFarmLedger(ctx context.Context, farmID uuid.UUID) ([]model.StockLedger, error) {
	rows, err := s.rows.ListByFarm(ctx, farmID)
	if err != nil {
		return nil, apierror.Storage("ledger.list_farm", err)
	}
	return rows, nil
}

// notifyLevel tells the alerting collaborator about critical-stock
// transitions. Best effort: a delivery failure is logged and never surfaced
// as an operation failure.
func (s *ledgerService) notifyLevel(ctx context.Context, row *model.StockLedger, wasCritical bool) {
	if s.notifier == nil {
		return
	}
	isCritical := !row.RealQty.IsPositive()
	var err error
	switch {
	case isCritical:
		err = s.notifier.StockCritical(ctx, row)
	case wasCritical:
		err = s.notifier.StockRecovered(ctx, row)
	default:
		return
	}
	if err != nil {
		log.Warn().Err(err).
			Str("farm_id", row.FarmID.String()).
			Str("raw_material_id", row.RawMaterialID.String()).
			Msg("stock alert notification failed")
	}
}
