package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/normatel/norahub/authz"
)

// respondError maps service errors to HTTP status codes. Permission denials
// stay distinguishable from missing resources.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, authz.ErrForbidden), errors.Is(err, authz.ErrPendingApproval):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, authz.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, authz.ErrConflict), errors.Is(err, authz.ErrAlreadyExists), errors.Is(err, authz.ErrCargoInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
