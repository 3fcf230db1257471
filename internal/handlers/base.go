package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"platerate/internal/middleware"
	"platerate/internal/services"
	"platerate/internal/utils"
)

// RespondError maps a service error onto an HTTP status and JSON body.
func RespondError(c *gin.Context, err error) {
	code, message := statusFor(err)
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrPlateNotFound):
		return http.StatusNotFound, services.ErrPlateNotFound.Error()
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "Sign in required"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "Not allowed"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrConsistency):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrTransport):
		return http.StatusServiceUnavailable, "Service temporarily unavailable, please retry"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// badRequest reports a request that failed binding.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// paramID parses a numeric path parameter, answering 400 when it is not one.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func currentSession(c *gin.Context) services.Session {
	return middleware.CurrentSession(c)
}
