package handler

import (
	"net/http"

	"feedstock/internal/dto"
	"feedstock/internal/infra"
	"feedstock/internal/model"
	"feedstock/internal/service"
	"feedstock/internal/worker"

	"github.com/gin-gonic/gin"
)

// StockHandler exposes the ledger: per-farm listing, single rows, the manual
// real-quantity correction, baseline seeding, and the valuation PDF report.
type StockHandler struct {
	ledger         service.LedgerService
	dispatcher     *worker.Dispatcher
	pdfStoragePath string
}

func NewStockHandler(ledger service.LedgerService, dispatcher *worker.Dispatcher, pdfStoragePath string) *StockHandler {
	return &StockHandler{ledger: ledger, dispatcher: dispatcher, pdfStoragePath: pdfStoragePath}
}

func (h *StockHandler) GetFarmLedger(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	rows, err := h.ledger.GetFarmLedger(c.Request.Context(), farmID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.LedgerRowResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ledgerRowResponse(&rows[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *StockHandler) GetRow(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	materialID, ok := parseUUIDParam(c, "materialId")
	if !ok {
		return
	}
	row, err := h.ledger.GetRow(c.Request.Context(), farmID, materialID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledgerRowResponse(row))
}

func (h *StockHandler) SetRealQty(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	materialID, ok := parseUUIDParam(c, "materialId")
	if !ok {
		return
	}
	var req dto.SetRealQtyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	row, err := h.ledger.SetRealQuantity(c.Request.Context(), farmID, materialID, req.RealQty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledgerRowResponse(row))
}

func (h *StockHandler) SetBaseline(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	materialID, ok := parseUUIDParam(c, "materialId")
	if !ok {
		return
	}
	var req dto.BaselineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	row, err := h.ledger.SetBaseline(c.Request.Context(), farmID, materialID, req.InitialQty, req.InitialPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledgerRowResponse(row))
}

// ValuationReport renders the farm's ledger as a PDF. By default the file is
// streamed back; with ?email=<addr> it is queued for SMTP delivery instead.
func (h *StockHandler) ValuationReport(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	rows, err := h.ledger.GetFarmLedger(c.Request.Context(), farmID)
	if err != nil {
		respondError(c, err)
		return
	}
	path, err := infra.GenerateStockReportPDF(farmID.String(), rows, h.pdfStoragePath)
	if err != nil {
		respondError(c, err)
		return
	}

	if to := c.Query("email"); to != "" {
		err := h.dispatcher.EnqueueEmail(c.Request.Context(), worker.EmailJobPayload{
			ToEmail:    to,
			Subject:    "Stock valuation report",
			Body:       "Attached is the current stock valuation report for your farm.",
			AttachPath: path,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"detail": "report queued for delivery to " + to})
		return
	}
	c.FileAttachment(path, "stock_valuation.pdf")
}

func ledgerRowResponse(row *model.StockLedger) dto.LedgerRowResponse {
	resp := dto.LedgerRowResponse{
		ID:             row.ID,
		FarmID:         row.FarmID,
		RawMaterialID:  row.RawMaterialID,
		AccumulatedQty: row.AccumulatedQty,
		SystemQty:      row.SystemQty,
		RealQty:        row.RealQty,
		Shrinkage:      row.Shrinkage,
		WarehousePrice: row.WarehousePrice,
		StockValue:     row.StockValue,
		Version:        row.Version,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.RawMaterial != nil {
		resp.RawMaterialCode = row.RawMaterial.Code
		resp.RawMaterialName = row.RawMaterial.Name
	}
	return resp
}
