package handler

import (
	"net/http"

	"feedstock/internal/dto"
	"feedstock/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductionsHandler struct{ svc service.ProductionService }

func NewProductionsHandler(svc service.ProductionService) *ProductionsHandler {
	return &ProductionsHandler{svc: svc}
}

func (h *ProductionsHandler) Record(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	var req dto.ProductionCreateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordProduction(c.Request.Context(), farmID, actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProductionsHandler) ListByFarm(c *gin.Context) {
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

func (h *ProductionsHandler) Get(c *gin.Context) {
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

func (h *ProductionsHandler) Edit(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ProductionUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EditProduction(c.Request.Context(), id, actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductionsHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteProduction(c.Request.Context(), id, actorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductionsHandler) Restore(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RestoreProduction(c.Request.Context(), id, actorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
