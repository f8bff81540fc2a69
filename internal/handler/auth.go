package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flicky/farm-market-api/internal/config"
	"github.com/flicky/farm-market-api/internal/dto"
	"github.com/flicky/farm-market-api/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	cookie      config.CookieConfig
	ttl         time.Duration
}

func NewAuthHandler(authService *service.AuthService, cookie config.CookieConfig, ttl time.Duration) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie, ttl: ttl}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSession(c, resp.Token)
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSession(c, resp.Token)
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me reports the caller as seen by the gate.
func (h *AuthHandler) Me(c *gin.Context) {
	p := principal(c)
	c.JSON(http.StatusOK, dto.PrincipalResponse{ID: p.ID, Name: p.Name, Role: string(p.Role)})
}

func (h *AuthHandler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.ttl.Seconds()), "/", h.cookie.Domain, h.cookie.Secure, true)
}
