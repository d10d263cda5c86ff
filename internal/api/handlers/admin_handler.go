// server/internal/api/handlers/admin_handler.go
package handlers

import (
	"net/http"

	"pharma-redistribution-api-server/internal/archive"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves superadmin-only maintenance endpoints.
type AdminHandler struct {
	Exporter *archive.Exporter // nil when S3 is disabled
}

// ExportRedistributionLogs archives the logs of facility :id to S3.
func (h *AdminHandler) ExportRedistributionLogs(c *gin.Context) {
	if h.Exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Log archive is not configured"})
		return
	}
	result, err := h.Exporter.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
