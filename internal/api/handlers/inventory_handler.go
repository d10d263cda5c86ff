// server/internal/api/handlers/inventory_handler.go
package handlers

import (
	"net/http"
	"time"

	"pharma-redistribution-api-server/internal/inventory"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	Service *inventory.Service
}

type ReceiveStockRequest struct {
	DrugName     string    `json:"drugName" binding:"required"`
	BatchNumber  string    `json:"batchNumber" binding:"required"`
	Supplier     string    `json:"supplier"`
	Quantity     int       `json:"quantity" binding:"required"`
	ReorderLevel int       `json:"reorderLevel"`
	ExpiryDate   time.Time `json:"expiryDate"`
}

type DispenseStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetMyInventory lists the lots of the caller's facility.
func (h *InventoryHandler) GetMyInventory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	lots, err := h.Service.ListLots(c.Request.Context(), actor.FacilityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lots)
}

func (h *InventoryHandler) ReceiveStock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.Service.Receive(c.Request.Context(), actor, inventory.ReceiveInput{
		DrugName:     req.DrugName,
		BatchNumber:  req.BatchNumber,
		Supplier:     req.Supplier,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		ExpiryDate:   req.ExpiryDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *InventoryHandler) DispenseStock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req DispenseStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.Service.Dispense(c.Request.Context(), actor, inventory.DispenseInput{
		LotID:    c.Param("id"),
		Quantity: req.Quantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}
