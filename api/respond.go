package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kargin-dv/skyfare/internal/domain"
)

// respondError maps the domain error taxonomy onto HTTP statuses. Internal
// errors stay opaque to clients.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
