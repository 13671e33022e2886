package service

// stubs_test.go — in-memory repository stubs shared by the service tests.
// Services run against these with a nil DB, so runTx passes a nil tx through.

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedstock/internal/model"
	"feedstock/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pairKey(farmID, materialID uuid.UUID) string {
	return farmID.String() + "|" + materialID.String()
}

// ── LedgerRepository stub ────────────────────────────────────────────────────

type stubLedgerRepo struct {
	rows      map[string]*model.StockLedger
	byID      map[uuid.UUID]string
	baselines map[string]*model.StockBaseline

	// forceConflict makes the next guarded update report zero matched rows.
	forceConflict bool
	// failDerived makes SaveDerived fail, simulating a crash mid-cascade.
	failDerived bool
}

func newStubLedgerRepo() *stubLedgerRepo {
	return &stubLedgerRepo{
		rows:      make(map[string]*model.StockLedger),
		byID:      make(map[uuid.UUID]string),
		baselines: make(map[string]*model.StockBaseline),
	}
}

func (r *stubLedgerRepo) FindRow(_ context.Context, farmID, materialID uuid.UUID) (*model.StockLedger, error) {
	row, ok := r.rows[pairKey(farmID, materialID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *stubLedgerRepo) ListByFarm(_ context.Context, farmID uuid.UUID) ([]model.StockLedger, error) {
	var out []model.StockLedger
	for _, row := range r.rows {
		if row.FarmID == farmID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *stubLedgerRepo) Create(_ context.Context, row *model.StockLedger) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	key := pairKey(row.FarmID, row.RawMaterialID)
	r.rows[key] = &cp
	r.byID[row.ID] = key
	return nil
}

func (r *stubLedgerRepo) SaveDerived(_ context.Context, row *model.StockLedger) error {
	if r.failDerived {
		return errors.New("derived write failed")
	}
	stored := r.rows[r.byID[row.ID]]
	stored.AccumulatedQty = row.AccumulatedQty
	stored.SystemQty = row.SystemQty
	stored.RealQty = row.RealQty
	stored.Shrinkage = row.Shrinkage
	stored.WarehousePrice = row.WarehousePrice
	stored.StockValue = row.StockValue
	return nil
}

func (r *stubLedgerRepo) UpdateRealQtyGuarded(_ context.Context, row *model.StockLedger, expectedVersion int64) (bool, error) {
	if r.forceConflict {
		r.forceConflict = false
		return false, nil
	}
	stored := r.rows[r.byID[row.ID]]
	if stored == nil || stored.Version != expectedVersion {
		return false, nil
	}
	stored.AccumulatedQty = row.AccumulatedQty
	stored.SystemQty = row.SystemQty
	stored.RealQty = row.RealQty
	stored.Shrinkage = row.Shrinkage
	stored.WarehousePrice = row.WarehousePrice
	stored.StockValue = row.StockValue
	stored.Version++
	return true, nil
}

func (r *stubLedgerRepo) FindBaseline(_ context.Context, farmID, materialID uuid.UUID) (*model.StockBaseline, error) {
	b, ok := r.baselines[pairKey(farmID, materialID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *stubLedgerRepo) UpsertBaseline(_ context.Context, b *model.StockBaseline) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	r.baselines[pairKey(b.FarmID, b.RawMaterialID)] = &cp
	return nil
}

var _ repository.LedgerRepository = (*stubLedgerRepo)(nil)

// ── PurchaseRepository stub ──────────────────────────────────────────────────

type stubPurchaseRepo struct {
	headers   map[uuid.UUID]*model.Purchase // Lines kept separately
	lines     map[uuid.UUID]*model.PurchaseLine
	lineOrder []uuid.UUID
}

func newStubPurchaseRepo() *stubPurchaseRepo {
	return &stubPurchaseRepo{
		headers: make(map[uuid.UUID]*model.Purchase),
		lines:   make(map[uuid.UUID]*model.PurchaseLine),
	}
}

func (r *stubPurchaseRepo) Create(_ context.Context, _ *gorm.DB, p *model.Purchase) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	header := *p
	header.Lines = nil
	r.headers[p.ID] = &header
	for i := range p.Lines {
		l := &p.Lines[i]
		l.PurchaseID = p.ID
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		cp := *l
		r.lines[l.ID] = &cp
		r.lineOrder = append(r.lineOrder, l.ID)
	}
	return nil
}

func (r *stubPurchaseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Purchase, error) {
	header, ok := r.headers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *header
	for _, lid := range r.lineOrder {
		if l := r.lines[lid]; l.PurchaseID == id {
			cp.Lines = append(cp.Lines, *l)
		}
	}
	return &cp, nil
}

func (r *stubPurchaseRepo) UpdateTx(_ *gorm.DB, p *model.Purchase) error {
	header := *p
	header.Lines = nil
	r.headers[p.ID] = &header
	return nil
}

func (r *stubPurchaseRepo) SetActive(_ context.Context, id uuid.UUID, active bool, actor *uuid.UUID, at *time.Time) error {
	header := r.headers[id]
	header.Active = active
	header.DeletedBy = actor
	header.DeletedAt = at
	return nil
}

func (r *stubPurchaseRepo) ListByFarm(_ context.Context, farmID uuid.UUID, includeInactive bool) ([]model.Purchase, error) {
	var out []model.Purchase
	for id, h := range r.headers {
		if h.FarmID != farmID || (!includeInactive && !h.Active) {
			continue
		}
		p, _ := r.FindByID(context.Background(), id)
		out = append(out, *p)
	}
	return out, nil
}

func (r *stubPurchaseRepo) FindLineByID(_ context.Context, id uuid.UUID) (*model.PurchaseLine, error) {
	l, ok := r.lines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *stubPurchaseRepo) CreateLineTx(_ *gorm.DB, l *model.PurchaseLine) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	r.lines[l.ID] = &cp
	r.lineOrder = append(r.lineOrder, l.ID)
	return nil
}

func (r *stubPurchaseRepo) UpdateLineTx(_ *gorm.DB, l *model.PurchaseLine) error {
	cp := *l
	r.lines[l.ID] = &cp
	return nil
}

func (r *stubPurchaseRepo) DeactivateLineTx(_ *gorm.DB, id uuid.UUID) error {
	r.lines[id].Active = false
	return nil
}

func (r *stubPurchaseRepo) CountActiveLines(_ context.Context, purchaseID uuid.UUID) (int64, error) {
	var n int64
	for _, l := range r.lines {
		if l.PurchaseID == purchaseID && l.Active {
			n++
		}
	}
	return n, nil
}

func (r *stubPurchaseRepo) MaterialIDs(_ context.Context, purchaseID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, lid := range r.lineOrder {
		l := r.lines[lid]
		if l.PurchaseID != purchaseID {
			continue
		}
		if _, ok := seen[l.RawMaterialID]; !ok {
			seen[l.RawMaterialID] = struct{}{}
			out = append(out, l.RawMaterialID)
		}
	}
	return out, nil
}

func (r *stubPurchaseRepo) activeLinesFor(farmID, materialID uuid.UUID) []*model.PurchaseLine {
	var out []*model.PurchaseLine
	for _, lid := range r.lineOrder {
		l := r.lines[lid]
		h := r.headers[l.PurchaseID]
		if l.Active && h.Active && h.FarmID == farmID && l.RawMaterialID == materialID {
			out = append(out, l)
		}
	}
	return out
}

func (r *stubPurchaseRepo) SumActiveQty(_ context.Context, farmID, materialID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, l := range r.activeLinesFor(farmID, materialID) {
		sum = sum.Add(l.Quantity)
	}
	return sum, nil
}

func (r *stubPurchaseRepo) ListActivePriceEvents(_ context.Context, farmID, materialID uuid.UUID) ([]repository.PriceEvent, error) {
	var events []repository.PriceEvent
	for _, l := range r.activeLinesFor(farmID, materialID) {
		events = append(events, repository.PriceEvent{Qty: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return events, nil
}

func (r *stubPurchaseRepo) LatestActiveUnitPrice(_ context.Context, farmID, materialID uuid.UUID) (*decimal.Decimal, error) {
	lines := r.activeLinesFor(farmID, materialID)
	if len(lines) == 0 {
		return nil, nil
	}
	price := lines[len(lines)-1].UnitPrice
	return &price, nil
}

func (r *stubPurchaseRepo) DB() *gorm.DB { return nil }

var _ repository.PurchaseRepository = (*stubPurchaseRepo)(nil)

// ── ProductionRepository stub ────────────────────────────────────────────────

type stubProductionRepo struct {
	runs map[uuid.UUID]*model.ProductionRun
}

func newStubProductionRepo() *stubProductionRepo {
	return &stubProductionRepo{runs: make(map[uuid.UUID]*model.ProductionRun)}
}

func copyRun(run *model.ProductionRun) *model.ProductionRun {
	cp := *run
	cp.Lines = append([]model.ProductionLine(nil), run.Lines...)
	return &cp
}

func (r *stubProductionRepo) Create(_ context.Context, _ *gorm.DB, run *model.ProductionRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	for i := range run.Lines {
		run.Lines[i].ProductionRunID = run.ID
		if run.Lines[i].ID == uuid.Nil {
			run.Lines[i].ID = uuid.New()
		}
	}
	r.runs[run.ID] = copyRun(run)
	return nil
}

func (r *stubProductionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductionRun, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyRun(run), nil
}

func (r *stubProductionRepo) UpdateTx(_ *gorm.DB, run *model.ProductionRun) error {
	stored := r.runs[run.ID]
	cp := copyRun(run)
	cp.Lines = stored.Lines // header update leaves lines alone
	r.runs[run.ID] = cp
	return nil
}

func (r *stubProductionRepo) ReplaceLinesTx(_ *gorm.DB, runID uuid.UUID, lines []model.ProductionLine) error {
	for i := range lines {
		lines[i].ProductionRunID = runID
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
	}
	r.runs[runID].Lines = append([]model.ProductionLine(nil), lines...)
	return nil
}

func (r *stubProductionRepo) SetActive(_ context.Context, id uuid.UUID, active bool, actor *uuid.UUID, at *time.Time) error {
	run := r.runs[id]
	run.Active = active
	run.DeletedBy = actor
	run.DeletedAt = at
	return nil
}

func (r *stubProductionRepo) ListByFarm(_ context.Context, farmID uuid.UUID, includeInactive bool) ([]model.ProductionRun, error) {
	var out []model.ProductionRun
	for _, run := range r.runs {
		if run.FarmID == farmID && (includeInactive || run.Active) {
			out = append(out, *copyRun(run))
		}
	}
	return out, nil
}

func (r *stubProductionRepo) SumActiveConsumption(_ context.Context, farmID, materialID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, run := range r.runs {
		if run.FarmID != farmID || !run.Active {
			continue
		}
		for _, l := range run.Lines {
			if l.RawMaterialID == materialID {
				sum = sum.Add(l.Quantity)
			}
		}
	}
	return sum, nil
}

func (r *stubProductionRepo) CountActiveByFarm(_ context.Context, farmID uuid.UUID) (int64, error) {
	var n int64
	for _, run := range r.runs {
		if run.FarmID == farmID && run.Active {
			n++
		}
	}
	return n, nil
}

func (r *stubProductionRepo) MaterialIDs(_ context.Context, runID uuid.UUID) ([]uuid.UUID, error) {
	run, ok := r.runs[runID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, l := range run.Lines {
		if _, ok := seen[l.RawMaterialID]; !ok {
			seen[l.RawMaterialID] = struct{}{}
			out = append(out, l.RawMaterialID)
		}
	}
	return out, nil
}

func (r *stubProductionRepo) DB() *gorm.DB { return nil }

var _ repository.ProductionRepository = (*stubProductionRepo)(nil)

// ── RawMaterialRepository stub ───────────────────────────────────────────────

type stubMaterialRepo struct {
	materials map[uuid.UUID]*model.RawMaterial
}

func newStubMaterialRepo() *stubMaterialRepo {
	return &stubMaterialRepo{materials: make(map[uuid.UUID]*model.RawMaterial)}
}

func (r *stubMaterialRepo) Create(_ context.Context, m *model.RawMaterial) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	r.materials[m.ID] = &cp
	return nil
}

func (r *stubMaterialRepo) FindByID(_ context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	m, ok := r.materials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *stubMaterialRepo) FindByCode(_ context.Context, farmID uuid.UUID, code string) (*model.RawMaterial, error) {
	for _, m := range r.materials {
		if m.FarmID == farmID && m.Code == code && m.Active {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubMaterialRepo) ListByFarm(_ context.Context, farmID uuid.UUID) ([]model.RawMaterial, error) {
	var out []model.RawMaterial
	for _, m := range r.materials {
		if m.FarmID == farmID && m.Active {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubMaterialRepo) Update(_ context.Context, m *model.RawMaterial) error {
	cp := *m
	r.materials[m.ID] = &cp
	return nil
}

func (r *stubMaterialRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.materials[id].Active = false
	return nil
}

func (r *stubMaterialRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.RawMaterial, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubMaterialRepo) UpdatePriceTx(_ *gorm.DB, id uuid.UUID, price decimal.Decimal) error {
	r.materials[id].CurrentPrice = price
	return nil
}

func (r *stubMaterialRepo) DB() *gorm.DB { return nil }

var _ repository.RawMaterialRepository = (*stubMaterialRepo)(nil)

// ── SupplierRepository stub ──────────────────────────────────────────────────

type stubSupplierRepo struct {
	suppliers map[uuid.UUID]*model.Supplier
}

func newStubSupplierRepo() *stubSupplierRepo {
	return &stubSupplierRepo{suppliers: make(map[uuid.UUID]*model.Supplier)}
}

func (r *stubSupplierRepo) Create(_ context.Context, s *model.Supplier) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.suppliers[s.ID] = &cp
	return nil
}

func (r *stubSupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubSupplierRepo) List(_ context.Context) ([]model.Supplier, error) {
	var out []model.Supplier
	for _, s := range r.suppliers {
		if s.Active {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubSupplierRepo) Update(_ context.Context, s *model.Supplier) error {
	cp := *s
	r.suppliers[s.ID] = &cp
	return nil
}

func (r *stubSupplierRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.suppliers[id].Active = false
	return nil
}

var _ repository.SupplierRepository = (*stubSupplierRepo)(nil)

// ── PriceChangeRepository stub ───────────────────────────────────────────────

type stubPriceChangeRepo struct {
	changes []model.PriceChange
}

func newStubPriceChangeRepo() *stubPriceChangeRepo { return &stubPriceChangeRepo{} }

func (r *stubPriceChangeRepo) CreateTx(_ *gorm.DB, pc *model.PriceChange) error {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	r.changes = append(r.changes, *pc)
	return nil
}

func (r *stubPriceChangeRepo) ListByMaterial(_ context.Context, materialID uuid.UUID, _, _ int) ([]model.PriceChange, int64, error) {
	var out []model.PriceChange
	for _, pc := range r.changes {
		if pc.RawMaterialID == materialID {
			out = append(out, pc)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubPriceChangeRepo) forMaterial(materialID uuid.UUID) []model.PriceChange {
	out, _, _ := r.ListByMaterial(context.Background(), materialID, 1, 100)
	return out
}

var _ repository.PriceChangeRepository = (*stubPriceChangeRepo)(nil)

// ── RecipeRepository stub ────────────────────────────────────────────────────

type stubRecipeRepo struct {
	recipes map[uuid.UUID]*model.Recipe
}

func newStubRecipeRepo() *stubRecipeRepo {
	return &stubRecipeRepo{recipes: make(map[uuid.UUID]*model.Recipe)}
}

func copyRecipe(rec *model.Recipe) *model.Recipe {
	cp := *rec
	cp.Lines = append([]model.RecipeLine(nil), rec.Lines...)
	return &cp
}

func (r *stubRecipeRepo) Create(_ context.Context, _ *gorm.DB, rec *model.Recipe) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	for i := range rec.Lines {
		rec.Lines[i].RecipeID = rec.ID
		if rec.Lines[i].ID == uuid.Nil {
			rec.Lines[i].ID = uuid.New()
		}
	}
	r.recipes[rec.ID] = copyRecipe(rec)
	return nil
}

func (r *stubRecipeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Recipe, error) {
	rec, ok := r.recipes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyRecipe(rec), nil
}

func (r *stubRecipeRepo) FindByCode(_ context.Context, farmID uuid.UUID, code string) (*model.Recipe, error) {
	for _, rec := range r.recipes {
		if rec.FarmID == farmID && rec.Code == code {
			return copyRecipe(rec), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRecipeRepo) ListByFarm(_ context.Context, farmID uuid.UUID) ([]model.Recipe, error) {
	var out []model.Recipe
	for _, rec := range r.recipes {
		if rec.FarmID == farmID && rec.Active {
			out = append(out, *copyRecipe(rec))
		}
	}
	return out, nil
}

func (r *stubRecipeRepo) UpdateTx(_ *gorm.DB, rec *model.Recipe) error {
	stored := r.recipes[rec.ID]
	cp := copyRecipe(rec)
	cp.Lines = stored.Lines
	r.recipes[rec.ID] = cp
	return nil
}

func (r *stubRecipeRepo) ReplaceLinesTx(_ *gorm.DB, recipeID uuid.UUID, lines []model.RecipeLine) error {
	for i := range lines {
		lines[i].RecipeID = recipeID
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
	}
	r.recipes[recipeID].Lines = append([]model.RecipeLine(nil), lines...)
	return nil
}

func (r *stubRecipeRepo) ListUsingMaterial(_ context.Context, materialID uuid.UUID) ([]model.Recipe, error) {
	var out []model.Recipe
	for _, rec := range r.recipes {
		if !rec.Active {
			continue
		}
		for _, l := range rec.Lines {
			if l.RawMaterialID == materialID {
				out = append(out, *copyRecipe(rec))
				break
			}
		}
	}
	return out, nil
}

func (r *stubRecipeRepo) SaveCosts(_ context.Context, rec *model.Recipe) error {
	stored := r.recipes[rec.ID]
	stored.TotalCost = rec.TotalCost
	for _, l := range rec.Lines {
		for i := range stored.Lines {
			if stored.Lines[i].ID == l.ID {
				stored.Lines[i].UnitPrice = l.UnitPrice
				stored.Lines[i].Cost = l.Cost
			}
		}
	}
	return nil
}

func (r *stubRecipeRepo) DB() *gorm.DB { return nil }

var _ repository.RecipeRepository = (*stubRecipeRepo)(nil)

// ── AuditRepository stub ─────────────────────────────────────────────────────

type stubAuditRepo struct {
	entries []model.AuditEntry
}

func newStubAuditRepo() *stubAuditRepo { return &stubAuditRepo{} }

func (r *stubAuditRepo) Create(_ context.Context, e *model.AuditEntry) error {
	r.entries = append(r.entries, *e)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, _ repository.AuditFilter) ([]model.AuditEntry, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

var _ repository.AuditRepository = (*stubAuditRepo)(nil)

// ── Notifier / tracker recorders ─────────────────────────────────────────────

type recordingNotifier struct {
	criticals  []uuid.UUID
	recovereds []uuid.UUID
}

func (n *recordingNotifier) StockCritical(_ context.Context, row *model.StockLedger) error {
	n.criticals = append(n.criticals, row.RawMaterialID)
	return nil
}

func (n *recordingNotifier) StockRecovered(_ context.Context, row *model.StockLedger) error {
	n.recovereds = append(n.recovereds, row.RawMaterialID)
	return nil
}

var _ AlertNotifier = (*recordingNotifier)(nil)

type recordingTracker struct {
	marks  []string
	clears []string
}

func (t *recordingTracker) MarkDirty(_ context.Context, farmID, materialID uuid.UUID) {
	t.marks = append(t.marks, pairKey(farmID, materialID))
}

func (t *recordingTracker) ClearDirty(_ context.Context, farmID, materialID uuid.UUID) {
	t.clears = append(t.clears, pairKey(farmID, materialID))
}

var _ RecalcTracker = (*recordingTracker)(nil)

// ── Fixture wiring every service against the stubs ───────────────────────────

type fixture struct {
	farmID  uuid.UUID
	actorID uuid.UUID

	ledgerRepo     *stubLedgerRepo
	purchaseRepo   *stubPurchaseRepo
	productionRepo *stubProductionRepo
	materialRepo   *stubMaterialRepo
	supplierRepo   *stubSupplierRepo
	priceChanges   *stubPriceChangeRepo
	recipeRepo     *stubRecipeRepo
	auditRepo      *stubAuditRepo
	notifier       *recordingNotifier
	tracker        *recordingTracker

	ledger      LedgerService
	recipes     RecipeService
	purchases   PurchaseService
	productions ProductionService
}

func newFixture() *fixture {
	f := &fixture{
		farmID:         uuid.New(),
		actorID:        uuid.New(),
		ledgerRepo:     newStubLedgerRepo(),
		purchaseRepo:   newStubPurchaseRepo(),
		productionRepo: newStubProductionRepo(),
		materialRepo:   newStubMaterialRepo(),
		supplierRepo:   newStubSupplierRepo(),
		priceChanges:   newStubPriceChangeRepo(),
		recipeRepo:     newStubRecipeRepo(),
		auditRepo:      newStubAuditRepo(),
		notifier:       &recordingNotifier{},
		tracker:        &recordingTracker{},
	}
	f.ledger = NewLedgerService(f.ledgerRepo, f.purchaseRepo, f.productionRepo, f.notifier)
	f.recipes = NewRecipeService(f.recipeRepo, f.materialRepo)
	f.purchases = NewPurchaseService(
		f.purchaseRepo, f.productionRepo, f.materialRepo, f.supplierRepo,
		f.priceChanges, f.ledgerRepo, f.auditRepo, f.ledger, f.recipes, f.tracker,
	)
	f.productions = NewProductionService(
		f.productionRepo, f.recipeRepo, f.materialRepo, f.ledgerRepo, f.auditRepo, f.ledger, f.tracker,
	)
	return f
}

func (f *fixture) addMaterial(t *testing.T, code, price string) *model.RawMaterial {
	t.Helper()
	m := &model.RawMaterial{
		FarmID:       f.farmID,
		Code:         code,
		Name:         code,
		CurrentPrice: d(price),
		Active:       true,
	}
	if err := f.materialRepo.Create(context.Background(), m); err != nil {
		t.Fatalf("add material: %v", err)
	}
	return m
}

func (f *fixture) addSupplier(t *testing.T, name string) *model.Supplier {
	t.Helper()
	s := &model.Supplier{Name: name, Active: true}
	if err := f.supplierRepo.Create(context.Background(), s); err != nil {
		t.Fatalf("add supplier: %v", err)
	}
	return s
}
