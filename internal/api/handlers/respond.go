package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/toonface/internal/lifecycle"
	"github.com/your-org/toonface/internal/transform"
)

// Every response carries a success flag; failures carry the error message in
// the envelope the mobile clients expect.

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// respondLifecycleError maps lifecycle and gateway failures onto statuses:
// missing resources are 404, a repeated finalize is a client-correctable 400
// conflict, and upstream transform failures surface their extracted message
// verbatim as 500.
func respondLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrOriginalNotFound),
		errors.Is(err, lifecycle.ErrCartoonNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrAlreadyFinalized):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, transform.ErrEmptyResult):
		respondError(c, http.StatusInternalServerError, err.Error())
	default:
		var upstream *transform.UpstreamError
		if errors.As(err, &upstream) {
			respondError(c, http.StatusInternalServerError, upstream.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
