package handler

import (
	"net/http"

	"feedstock/internal/dto"
	"feedstock/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditHandler struct{ repo repository.AuditRepository }

func NewAuditHandler(repo repository.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

func (h *AuditHandler) List(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	filter := repository.AuditFilter{
		FarmID: &farmID,
		Entity: c.Query("entity"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 100),
	}
	if raw := c.Query("entity_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.EntityID = &id
		}
	}
	entries, total, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Paginated{Items: entries, Total: total, Page: filter.Page, Limit: filter.Limit})
}
