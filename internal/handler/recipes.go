package handler

import (
	"net/http"

	"feedstock/internal/dto"
	"feedstock/internal/service"

	"github.com/gin-gonic/gin"
)

type RecipesHandler struct{ svc service.RecipeService }

func NewRecipesHandler(svc service.RecipeService) *RecipesHandler {
	return &RecipesHandler{svc: svc}
}

// Upsert creates or fully replaces the recipe identified by (farm, code).
func (h *RecipesHandler) Upsert(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	var req dto.RecipeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateOrUpdate(c.Request.Context(), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecipesHandler) ListByFarm(c *gin.Context) {
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

func (h *RecipesHandler) Get(c *gin.Context) {
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

func (h *RecipesHandler) Recalculate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.RecalculateRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
