package handler

import (
	"net/http"

	"feedstock/internal/dto"
	"feedstock/internal/service"

	"github.com/gin-gonic/gin"
)

type PurchasesHandler struct{ svc service.PurchaseService }

func NewPurchasesHandler(svc service.PurchaseService) *PurchasesHandler {
	return &PurchasesHandler{svc: svc}
}

func (h *PurchasesHandler) Record(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	var req dto.PurchaseCreateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordPurchase(c.Request.Context(), farmID, actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PurchasesHandler) ListByFarm(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	includeInactive := c.Query("include_inactive") == "true"
	resp, err := h.svc.ListByFarm(c.Request.Context(), farmID, includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PurchasesHandler) Get(c *gin.Context) {
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

func (h *PurchasesHandler) AddLine(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.PurchaseLineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddLine(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PurchasesHandler) EditLine(c *gin.Context) {
	lineID, ok := parseUUIDParam(c, "lineId")
	if !ok {
		return
	}
	var req dto.PurchaseLineUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EditLine(c.Request.Context(), lineID, actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PurchasesHandler) DeleteLine(c *gin.Context) {
	lineID, ok := parseUUIDParam(c, "lineId")
	if !ok {
		return
	}
	if err := h.svc.DeleteLine(c.Request.Context(), lineID, actorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PurchasesHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteHeader(c.Request.Context(), id, actorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PurchasesHandler) Restore(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RestoreHeader(c.Request.Context(), id, actorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
