package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"feedstock/internal/apierror"
	"feedstock/internal/dto"
	"feedstock/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecipe(t *testing.T, f *fixture, code string, lines ...dto.RecipeLineRequest) *model.Recipe {
	t.Helper()
	rec, err := f.recipes.CreateOrUpdate(context.Background(), f.farmID, dto.RecipeRequest{
		Code:     code,
		Name:     code,
		Category: "layer",
		Lines:    lines,
	})
	require.NoError(t, err)
	return rec
}

func stock(t *testing.T, f *fixture, mat *model.RawMaterial, qty, price string) {
	t.Helper()
	seedPurchase(t, f, model.PurchaseLine{RawMaterialID: mat.ID, Quantity: d(qty), UnitPrice: d(price), Subtotal: d(qty).Mul(d(price))})
	_, err := f.ledger.Recalculate(context.Background(), f.farmID, mat.ID)
	require.NoError(t, err)
}

func TestRecordProduction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "2")
	soy := f.addMaterial(t, "SOY", "3")
	stock(t, f, corn, "2000", "2")
	stock(t, f, soy, "1000", "3")
	rec := makeRecipe(t, f, "LAYER-1",
		dto.RecipeLineRequest{RawMaterialID: corn.ID, Quantity: d("600")},
		dto.RecipeLineRequest{RawMaterialID: soy.ID, Quantity: d("400")},
	)

	run, err := f.productions.RecordProduction(ctx, f.farmID, f.actorID, dto.ProductionCreateRequest{
		RecipeID: rec.ID,
		Date:     time.Now(),
		Batches:  d("2"),
	})
	require.NoError(t, err)

	assert.Equal(t, "2000", run.ProducedWeight.String())
	assert.Equal(t, "4800", run.TotalCost.String())
	assert.Equal(t, "2.4", run.CostPerKg.String())
	assert.False(t, run.UnderStock)
	require.Len(t, run.Lines, 2)
	assert.Equal(t, "1200", run.Lines[0].Quantity.String())
	assert.Equal(t, "800", run.Lines[1].Quantity.String())

	row, err := f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "800", row.SystemQty.String())
	row, err = f.ledger.GetRow(ctx, f.farmID, soy.ID)
	require.NoError(t, err)
	assert.Equal(t, "200", row.SystemQty.String())
}

func TestRecordProductionUnderStockIsInformational(t *testing.T) {
	f := newFixture()
	corn := f.addMaterial(t, "CORN", "2")
	rec := makeRecipe(t, f, "LAYER-1", dto.RecipeLineRequest{RawMaterialID: corn.ID, Quantity: d("1000")})

	// No stock at all: the run is still recorded, just flagged.
	run, err := f.productions.RecordProduction(context.Background(), f.farmID, f.actorID, dto.ProductionCreateRequest{
		RecipeID: rec.ID,
		Date:     time.Now(),
		Batches:  d("1"),
	})
	require.NoError(t, err)
	assert.True(t, run.UnderStock)

	// The ledger goes negative rather than refusing the consumption.
	row, err := f.ledger.GetRow(context.Background(), f.farmID, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "-1000", row.SystemQty.String())
}

func TestRecordProductionZeroBatchesRejected(t *testing.T) {
	f := newFixture()
	corn := f.addMaterial(t, "CORN", "2")
	rec := makeRecipe(t, f, "LAYER-1", dto.RecipeLineRequest{RawMaterialID: corn.ID, Quantity: d("1000")})

	_, err := f.productions.RecordProduction(context.Background(), f.farmID, f.actorID, dto.ProductionCreateRequest{
		RecipeID: rec.ID,
		Date:     time.Now(),
		Batches:  d("0"),
	})
	var verr *apierror.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEditProductionRecalculatesDroppedMaterials(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "2")
	soy := f.addMaterial(t, "SOY", "3")
	stock(t, f, corn, "1500", "2")
	stock(t, f, soy, "1500", "3")
	recA := makeRecipe(t, f, "A", dto.RecipeLineRequest{RawMaterialID: corn.ID, Quantity: d("1000")})
	recB := makeRecipe(t, f, "B", dto.RecipeLineRequest{RawMaterialID: soy.ID, Quantity: d("1000")})

	run, err := f.productions.RecordProduction(ctx, f.farmID, f.actorID, dto.ProductionCreateRequest{
		RecipeID: recA.ID,
		Date:     time.Now(),
		Batches:  d("1"),
	})
	require.NoError(t, err)

	row, err := f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", row.SystemQty.String())

	// Switching the run to recipe B must release the corn consumption.
	run, err = f.productions.EditProduction(ctx, run.ID, f.actorID, dto.ProductionUpdateRequest{RecipeID: &recB.ID})
	require.NoError(t, err)
	require.Len(t, run.Lines, 1)
	assert.Equal(t, soy.ID, run.Lines[0].RawMaterialID)

	row, err = f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "1500", row.SystemQty.String())
	row, err = f.ledger.GetRow(ctx, f.farmID, soy.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", row.SystemQty.String())
}

func TestDeleteAndRestoreProductionRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "2")
	stock(t, f, corn, "1500", "2")
	rec := makeRecipe(t, f, "A", dto.RecipeLineRequest{RawMaterialID: corn.ID, Quantity: d("1000")})

	run, err := f.productions.RecordProduction(ctx, f.farmID, f.actorID, dto.ProductionCreateRequest{
		RecipeID: rec.ID,
		Date:     time.Now(),
		Batches:  d("1"),
	})
	require.NoError(t, err)

	before, err := f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", before.SystemQty.String())

	// Deleting restores the consumed quantity...
	require.NoError(t, f.productions.DeleteProduction(ctx, run.ID, f.actorID))
	row, err := f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.Equal(t, "1500", row.SystemQty.String())

	// ...and restoring puts the ledger back exactly where it was.
	require.NoError(t, f.productions.RestoreProduction(ctx, run.ID, f.actorID))
	after, err := f.ledger.GetRow(ctx, f.farmID, corn.ID)
	require.NoError(t, err)
	assert.True(t, before.SystemQty.Equal(after.SystemQty))
	assert.True(t, before.RealQty.Equal(after.RealQty))
	assert.True(t, before.StockValue.Equal(after.StockValue))
	assert.Equal(t, before.Version, after.Version)

	// Restore audit snapshots the inactive state before and the restored
	// state after, same convention as purchase restore.
	var restoreEntry *model.AuditEntry
	for i := range f.auditRepo.entries {
		if f.auditRepo.entries[i].Action == "restore" {
			restoreEntry = &f.auditRepo.entries[i]
		}
	}
	require.NotNil(t, restoreEntry)
	var inactive, restored model.ProductionRun
	require.NoError(t, json.Unmarshal(restoreEntry.Before, &inactive))
	require.NoError(t, json.Unmarshal(restoreEntry.After, &restored))
	assert.False(t, inactive.Active)
	assert.True(t, restored.Active)
}

func TestDeleteProductionTwiceRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	corn := f.addMaterial(t, "CORN", "2")
	stock(t, f, corn, "1500", "2")
	rec := makeRecipe(t, f, "A", dto.RecipeLineRequest{RawMaterialID: corn.ID, Quantity: d("1000")})

	run, err := f.productions.RecordProduction(ctx, f.farmID, f.actorID, dto.ProductionCreateRequest{
		RecipeID: rec.ID,
		Date:     time.Now(),
		Batches:  d("1"),
	})
	require.NoError(t, err)
	require.NoError(t, f.productions.DeleteProduction(ctx, run.ID, f.actorID))

	err = f.productions.DeleteProduction(ctx, run.ID, f.actorID)
	var verr *apierror.ValidationError
	assert.ErrorAs(t, err, &verr)
}
