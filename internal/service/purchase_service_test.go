package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"feedstock/internal/apierror"
	"feedstock/internal/dto"
	"feedstock/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineReq(materialID uuid.UUID, qty, price string) dto.PurchaseLineRequest {
	q, p := d(qty), d(price)
	return dto.PurchaseLineRequest{
		RawMaterialID: materialID,
		Quantity:      q,
		UnitPrice:     p,
		Subtotal:      q.Mul(p).Round(2),
	}
}

func purchaseReq(supplierID uuid.UUID, lines ...dto.PurchaseLineRequest) dto.PurchaseCreateRequest {
	return dto.PurchaseCreateRequest{
		SupplierID:    supplierID,
		InvoiceNumber: "FC-1001",
		Date:          time.Now(),
		Lines:         lines,
	}
}

func TestRecordPurchase(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Molinos del Sur")

	p, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "100", "12")))
	require.NoError(t, err)
	assert.Equal(t, "1200", p.Total.String())
	require.Len(t, p.Lines, 1)
	assert.Equal(t, "10", p.Lines[0].PriceBefore.String())

	// Last write wins: the material now trades at the invoice price.
	mat, err := f.materialRepo.FindByID(ctx, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "12", mat.CurrentPrice.String())

	changes := f.priceChanges.forMaterial(corn.ID)
	require.Len(t, changes, 1)
	assert.Equal(t, "10", changes[0].PriceBefore.String())
	assert.Equal(t, "12", changes[0].PriceAfter.String())
	assert.Equal(t, "20", changes[0].PercentDelta.String())
	assert.Equal(t, model.PriceReasonPurchase, changes[0].Reason)

	row, err := f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", row.SystemQty.String())
	assert.Equal(t, "12", row.WarehousePrice.String())
	assert.Equal(t, "1200", row.StockValue.String())

	// Cascade left no dirty pair behind.
	assert.Equal(t, f.tracker.marks, f.tracker.clears)
	require.Len(t, f.auditRepo.entries, 1)
	assert.Equal(t, "create", f.auditRepo.entries[0].Action)
}

func TestRecordPurchaseSameMaterialTwiceLastLineWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Molinos del Sur")

	// Two lines for the same material, the second back at the pre-purchase
	// price. Each line must see the price the previous line wrote, so the
	// final price is the last line's even though it equals the starting one.
	p, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID,
		purchaseReq(sup.ID, lineReq(corn.ID, "50", "12"), lineReq(corn.ID, "30", "10")))
	require.NoError(t, err)

	require.Len(t, p.Lines, 2)
	assert.Equal(t, "10", p.Lines[0].PriceBefore.String())
	assert.Equal(t, "10", p.Lines[1].PriceBefore.String())

	mat, err := f.materialRepo.FindByID(ctx, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", mat.CurrentPrice.String())

	changes := f.priceChanges.forMaterial(corn.ID)
	require.Len(t, changes, 2)
	assert.Equal(t, "10", changes[0].PriceBefore.String())
	assert.Equal(t, "12", changes[0].PriceAfter.String())
	assert.Equal(t, "12", changes[1].PriceBefore.String())
	assert.Equal(t, "10", changes[1].PriceAfter.String())
}

func TestDirtyPairSurvivesFailedRecalculation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Molinos del Sur")

	_, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID,
		purchaseReq(sup.ID, lineReq(corn.ID, "100", "10")))
	require.NoError(t, err)
	require.Equal(t, f.tracker.marks, f.tracker.clears)

	// The derived write dies after the purchase itself persisted. The pair
	// was marked before the source records committed, so the reconciliation
	// sweep can still repair the ledger.
	f.ledgerRepo.failDerived = true
	_, err = f.purchases.RecordPurchase(ctx, f.farmID, f.actorID,
		purchaseReq(sup.ID, lineReq(corn.ID, "10", "10")))
	require.Error(t, err)

	key := pairKey(f.farmID, corn.ID)
	assert.Equal(t, []string{key, key}, f.tracker.marks)
	assert.Equal(t, []string{key}, f.tracker.clears)
}

func TestRecordPurchaseSubtotalMismatch(t *testing.T) {
	f := newFixture()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Molinos del Sur")

	req := purchaseReq(sup.ID, dto.PurchaseLineRequest{
		RawMaterialID: corn.ID,
		Quantity:      d("100"),
		UnitPrice:     d("12"),
		Subtotal:      d("1100"), // should be 1200
	})
	_, err := f.purchases.RecordPurchase(context.Background(), f.farmID, f.actorID, req)

	var verr *apierror.ValidationError
	require.ErrorAs(t, err, &verr)
	// Pre-flight rejection: nothing was written.
	assert.Empty(t, f.purchaseRepo.headers)
	assert.Empty(t, f.priceChanges.changes)
}

func TestRecordPurchaseInactiveSupplier(t *testing.T) {
	f := newFixture()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Cerealera Norte")
	require.NoError(t, f.supplierRepo.SoftDelete(context.Background(), sup.ID))

	_, err := f.purchases.RecordPurchase(context.Background(), f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "10", "12")))
	var verr *apierror.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRecordPurchaseForeignMaterialRejected(t *testing.T) {
	f := newFixture()
	sup := f.addSupplier(t, "Molinos del Sur")
	other := &model.RawMaterial{FarmID: uuid.New(), Code: "CORN", Name: "corn", Active: true}
	require.NoError(t, f.materialRepo.Create(context.Background(), other))

	_, err := f.purchases.RecordPurchase(context.Background(), f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(other.ID, "10", "12")))
	var verr *apierror.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestProvisionalHeaderKeepsCallerTotal(t *testing.T) {
	f := newFixture()
	sup := f.addSupplier(t, "Molinos del Sur")

	req := purchaseReq(sup.ID)
	req.Total = d("5000")
	p, err := f.purchases.RecordPurchase(context.Background(), f.farmID, f.actorID, req)
	require.NoError(t, err)
	assert.Equal(t, "5000", p.Total.String())
	assert.Empty(t, p.Lines)
	assert.Empty(t, f.priceChanges.changes)
}

func TestAddLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "10")
	soy := f.addMaterial(t, "SOY", "20")
	sup := f.addSupplier(t, "Molinos del Sur")

	p, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "100", "12")))
	require.NoError(t, err)

	p, err = f.purchases.AddLine(ctx, p.ID, f.actorID, lineReq(soy.ID, "50", "22"))
	require.NoError(t, err)
	assert.Equal(t, "2300", p.Total.String())
	require.Len(t, p.Lines, 2)

	row, err := f.ledger.GetRow(ctx, f.farmID, soy.ID)
	require.NoError(t, err)
	assert.Equal(t, "50", row.SystemQty.String())
}

func TestEditLine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Molinos del Sur")

	p, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "100", "12")))
	require.NoError(t, err)
	lineID := p.Lines[0].ID

	p, err = f.purchases.EditLine(ctx, lineID, f.actorID, dto.PurchaseLineUpdateRequest{
		Quantity:  d("80"),
		UnitPrice: d("15"),
		Subtotal:  d("1200"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1200", p.Total.String())

	mat, err := f.materialRepo.FindByID(ctx, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "15", mat.CurrentPrice.String())

	row, err := f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "80", row.SystemQty.String())
	assert.Equal(t, "15", row.WarehousePrice.String())

	changes := f.priceChanges.forMaterial(corn.ID)
	require.Len(t, changes, 2)
	assert.Equal(t, model.PriceReasonLineEdit, changes[1].Reason)
}

func TestDeleteLineBlockedByConsumption(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Molinos del Sur")

	p, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "100", "12")))
	require.NoError(t, err)

	run := &model.ProductionRun{
		FarmID:   f.farmID,
		RecipeID: uuid.New(),
		Date:     time.Now(),
		Batches:  d("1"),
		Active:   true,
		Lines:    []model.ProductionLine{{RawMaterialID: corn.ID, Quantity: d("60")}},
	}
	require.NoError(t, f.productionRepo.Create(ctx, nil, run))

	err = f.purchases.DeleteLine(ctx, p.Lines[0].ID, f.actorID)
	var derr *apierror.DependencyError
	assert.ErrorAs(t, err, &derr)
}

func TestDeleteLinePriceFallback(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "0")
	sup := f.addSupplier(t, "Molinos del Sur")

	require.NoError(t, f.ledgerRepo.UpsertBaseline(ctx, &model.StockBaseline{
		FarmID:        f.farmID,
		RawMaterialID: corn.ID,
		InitialQty:    d("0"),
		InitialPrice:  d("7"),
	}))

	p1, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "100", "10")))
	require.NoError(t, err)
	p2, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "50", "12")))
	require.NoError(t, err)

	// Deleting the newest line falls the price back to the previous purchase.
	require.NoError(t, f.purchases.DeleteLine(ctx, p2.Lines[0].ID, f.actorID))
	mat, err := f.materialRepo.FindByID(ctx, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", mat.CurrentPrice.String())

	// Deleting the last remaining line falls back to the baseline seed price.
	require.NoError(t, f.purchases.DeleteLine(ctx, p1.Lines[0].ID, f.actorID))
	mat, err = f.materialRepo.FindByID(ctx, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "7", mat.CurrentPrice.String())

	changes := f.priceChanges.forMaterial(corn.ID)
	require.NotEmpty(t, changes)
	assert.Equal(t, model.PriceReasonLineDelete, changes[len(changes)-1].Reason)

	row, err := f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.True(t, row.SystemQty.IsZero())
}

func TestDeleteHeaderBlockedByActiveLines(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Molinos del Sur")

	p, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "100", "12")))
	require.NoError(t, err)

	err = f.purchases.DeleteHeader(ctx, p.ID, f.actorID)
	var derr *apierror.DependencyError
	assert.ErrorAs(t, err, &derr)
}

func TestDeleteHeaderBlockedByActiveRuns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sup := f.addSupplier(t, "Molinos del Sur")

	req := purchaseReq(sup.ID)
	req.Total = d("100")
	p, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, req)
	require.NoError(t, err)

	run := &model.ProductionRun{FarmID: f.farmID, RecipeID: uuid.New(), Date: time.Now(), Batches: d("1"), Active: true}
	require.NoError(t, f.productionRepo.Create(ctx, nil, run))

	err = f.purchases.DeleteHeader(ctx, p.ID, f.actorID)
	var derr *apierror.DependencyError
	assert.ErrorAs(t, err, &derr)
}

func TestDeleteAndRestoreHeader(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "10")
	sup := f.addSupplier(t, "Molinos del Sur")

	p, err := f.purchases.RecordPurchase(ctx, f.farmID, f.actorID, purchaseReq(sup.ID, lineReq(corn.ID, "100", "12")))
	require.NoError(t, err)
	require.NoError(t, f.purchases.DeleteLine(ctx, p.Lines[0].ID, f.actorID))

	require.NoError(t, f.purchases.DeleteHeader(ctx, p.ID, f.actorID))
	got, err := f.purchases.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.NotNil(t, got.DeletedAt)
	assert.Equal(t, f.actorID, *got.DeletedBy)

	require.NoError(t, f.purchases.RestoreHeader(ctx, p.ID, f.actorID))
	got, err = f.purchases.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Nil(t, got.DeletedAt)

	// Restore audit snapshots the inactive state before and the restored
	// state after.
	var restoreEntry *model.AuditEntry
	for i := range f.auditRepo.entries {
		if f.auditRepo.entries[i].Action == "restore" {
			restoreEntry = &f.auditRepo.entries[i]
		}
	}
	require.NotNil(t, restoreEntry)
	var before, after model.Purchase
	require.NoError(t, json.Unmarshal(restoreEntry.Before, &before))
	require.NoError(t, json.Unmarshal(restoreEntry.After, &after))
	assert.False(t, before.Active)
	assert.True(t, after.Active)
}
