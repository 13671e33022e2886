package handler

import (
	"net/http"

	"feedstock/internal/dto"
	"feedstock/internal/service"

	"github.com/gin-gonic/gin"
)

type RawMaterialsHandler struct{ svc service.RawMaterialService }

func NewRawMaterialsHandler(svc service.RawMaterialService) *RawMaterialsHandler {
	return &RawMaterialsHandler{svc: svc}
}

func (h *RawMaterialsHandler) Create(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	var req dto.RawMaterialCreateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RawMaterialsHandler) ListByFarm(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	resp, err := h.svc.ListByFarm(c.Request.Context(), farmID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RawMaterialsHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RawMaterialsHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.RawMaterialUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RawMaterialsHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RawMaterialsHandler) SetManualPrice(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ManualPriceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetManualPrice(c.Request.Context(), id, req.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RawMaterialsHandler) PriceHistory(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 50)
	rows, total, err := h.svc.PriceHistory(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Paginated{Items: rows, Total: total, Page: page, Limit: limit})
}
