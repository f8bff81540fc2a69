package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/farm-market-api/internal/middleware"
	"github.com/flicky/farm-market-api/internal/service"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrUserAlreadyExists, http.StatusConflict},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrProductNotFound, http.StatusNotFound},
	{service.ErrNotProductOwner, http.StatusForbidden},
	{service.ErrInvalidPrice, http.StatusBadRequest},
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrProductUnavailable, http.StatusConflict},
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrOrderAccessDenied, http.StatusForbidden},
	{service.ErrChatNotFound, http.StatusNotFound},
	{service.ErrNotChatParticipant, http.StatusForbidden},
	{service.ErrInvalidContent, http.StatusBadRequest},
	{service.ErrSelfChat, http.StatusBadRequest},
}

// writeError maps domain errors to a status and message. Anything
// unrecognised is logged and reported as a 500 without details.
func writeError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": e.err.Error()})
			return
		}
	}
	slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

func principal(c *gin.Context) middleware.Principal {
	p, _ := middleware.CurrentPrincipal(c)
	return p
}
