// server/internal/api/handlers/facility_handler.go
package handlers

import (
	"context"
	"net/http"

	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"

	"github.com/gin-gonic/gin"
)

// FacilityHandler exposes the facility directory read-only; facilities are
// managed by the identity service.
type FacilityHandler struct {
	Store store.Scope
}

// GetAllFacilities lists every facility, e.g. to pick a transfer destination.
func (h *FacilityHandler) GetAllFacilities(c *gin.Context) {
	var facilities []models.Facility
	err := h.Store.Execute(c.Request.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		facilities, err = tx.Facilities().List(ctx)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, facilities)
}

func (h *FacilityHandler) GetFacilityByID(c *gin.Context) {
	var facility *models.Facility
	err := h.Store.Execute(c.Request.Context(), func(ctx context.Context, tx store.Tx) error {
		var err error
		facility, err = tx.Facilities().FindByID(ctx, c.Param("id"))
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, facility)
}
