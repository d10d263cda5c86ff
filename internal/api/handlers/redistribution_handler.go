// server/internal/api/handlers/redistribution_handler.go
package handlers

import (
	"net/http"

	"pharma-redistribution-api-server/internal/redistribution"

	"github.com/gin-gonic/gin"
)

type RedistributionHandler struct {
	Service *redistribution.Service
}

type CreateRedistributionRequest struct {
	DrugID       string `json:"drugID" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
	ToFacilityID string `json:"toFacilityID" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
}

// CreateRedistribution proposes a transfer from the caller's facility.
func (h *RedistributionHandler) CreateRedistribution(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req CreateRedistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.Service.Create(c.Request.Context(), actor, redistribution.CreateInput{
		DrugID:       req.DrugID,
		Quantity:     req.Quantity,
		ToFacilityID: req.ToFacilityID,
		Reason:       req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListRedistributions returns requests sent or received by the caller's facility.
func (h *RedistributionHandler) ListRedistributions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	h.list(c, actor.FacilityID)
}

// ListFacilityRedistributions is the superadmin view of any facility.
func (h *RedistributionHandler) ListFacilityRedistributions(c *gin.Context) {
	h.list(c, c.Param("id"))
}

func (h *RedistributionHandler) list(c *gin.Context, facilityID string) {
	requests, err := h.Service.List(c.Request.Context(), facilityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *RedistributionHandler) ApproveRedistribution(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	req, err := h.Service.Approve(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *RedistributionHandler) DeclineRedistribution(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	req, err := h.Service.Decline(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *RedistributionHandler) ListRedistributionLogs(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	logs, err := h.Service.Logs(c.Request.Context(), actor.FacilityID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
