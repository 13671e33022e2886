package service

// ledger_calc.go — pure derivation rules for the stock ledger. No side
// effects; every orchestrated write path funnels through these functions so
// the math is expressed exactly once.

import (
	"feedstock/internal/repository"

	"github.com/shopspring/decimal"
)

// LedgerInputs is everything the derivation needs, already aggregated by the
// typed repository queries.
type LedgerInputs struct {
	BaselineQty   decimal.Decimal
	BaselinePrice decimal.Decimal
	PurchasedQty  decimal.Decimal // Σ quantity of active purchase lines
	ConsumedQty   decimal.Decimal // Σ quantity of active production lines
	Events        []repository.PriceEvent
}

// LedgerDerivation holds the three quantities that depend only on source
// records. RealQty, Shrinkage and StockValue additionally depend on the
// previously-held manual delta and are derived by the ledger service.
type LedgerDerivation struct {
	AccumulatedQty decimal.Decimal
	SystemQty      decimal.Decimal
	WarehousePrice decimal.Decimal
}

// DeriveLedger computes accumulated quantity, system quantity and warehouse
// price from the active purchase/production history plus the baseline seed.
func DeriveLedger(in LedgerInputs) LedgerDerivation {
	accumulated := in.BaselineQty.Add(in.PurchasedQty)
	return LedgerDerivation{
		AccumulatedQty: accumulated,
		SystemQty:      accumulated.Sub(in.ConsumedQty),
		WarehousePrice: WeightedAveragePrice(in.Events, in.BaselineQty, in.BaselinePrice),
	}
}

// WeightedAveragePrice is the rolling warehouse price: the quantity-weighted
// average Σ(qty·price)/Σ(qty) over the active purchase-line events, with the
// baseline counted as one additional event when it carries a nonzero quantity
// or price.
//
// When the total weight is zero (e.g. only a zero-quantity baseline with a
// seed price) the function falls back to the arithmetic mean of the event
// prices so the seed price is not lost.
func WeightedAveragePrice(events []repository.PriceEvent, baselineQty, baselinePrice decimal.Decimal) decimal.Decimal {
	all := events
	if !baselineQty.IsZero() || !baselinePrice.IsZero() {
		all = make([]repository.PriceEvent, 0, len(events)+1)
		all = append(all, repository.PriceEvent{Qty: baselineQty, UnitPrice: baselinePrice})
		all = append(all, events...)
	}
	if len(all) == 0 {
		return decimal.Zero
	}

	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, ev := range all {
		totalQty = totalQty.Add(ev.Qty)
		totalValue = totalValue.Add(ev.Qty.Mul(ev.UnitPrice))
	}
	if totalQty.IsZero() {
		sum := decimal.Zero
		for _, ev := range all {
			sum = sum.Add(ev.UnitPrice)
		}
		return sum.Div(decimal.NewFromInt(int64(len(all))))
	}
	return totalValue.Div(totalQty)
}

// Shrinkage is system minus real; negative means a physical surplus.
func Shrinkage(systemQty, realQty decimal.Decimal) decimal.Decimal {
	return systemQty.Sub(realQty)
}

// StockValue prices the physically-held quantity; a negative real quantity
// values the stock at zero rather than producing a negative valuation.
func StockValue(realQty, warehousePrice decimal.Decimal) decimal.Decimal {
	if realQty.IsNegative() {
		return decimal.Zero
	}
	return realQty.Mul(warehousePrice)
}
