package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/domain"
	"github.com/Harsh-BH/certqueue/internal/repository"
)

// ReferenceHandler answers certificate lookups against the reference store.
// The worker's verifier calls it the same way it would call the certificate
// authority.
type ReferenceHandler struct {
	refs   repository.ReferenceRepository
	logger *zap.Logger
}

func NewReferenceHandler(refs repository.ReferenceRepository, logger *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, logger: logger}
}

// Verify handles GET /mock-igi-api/verify/:cert
func (h *ReferenceHandler) Verify(c *gin.Context) {
	cert := strings.TrimSpace(c.Param("cert"))
	if cert == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Certificate number is required"})
		return
	}

	rec, err := h.refs.GetByCertificate(c.Request.Context(), cert)
	if errors.Is(err, domain.ErrReferenceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Certificate not found in IGI database"})
		return
	}
	if err != nil {
		h.logger.Error("Reference lookup failed", zap.String("certificate", cert), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}
