package handler

import (
	"net/http"

	"feedstock/internal/apierror"
	"feedstock/internal/repository"

	"github.com/gin-gonic/gin"
)

// PriceLookupHandler is the unauthenticated warehouse-price lookup used by
// barn terminals: farm + material code in, current price out.
type PriceLookupHandler struct {
	materials repository.RawMaterialRepository
}

func NewPriceLookupHandler(materials repository.RawMaterialRepository) *PriceLookupHandler {
	return &PriceLookupHandler{materials: materials}
}

func (h *PriceLookupHandler) Lookup(c *gin.Context) {
	farmID, ok := parseUUIDParam(c, "farmId")
	if !ok {
		return
	}
	code := c.Param("code")
	mat, err := h.materials.FindByCode(c.Request.Context(), farmID, code)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("raw material not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":          mat.Code,
		"name":          mat.Name,
		"current_price": mat.CurrentPrice,
	})
}
