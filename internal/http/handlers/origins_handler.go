// Administrative origin allow-list endpoints.
//
// These routes manage the dynamically allowed origin patterns consumed by the
// admission pipeline. They are mounted only when an admin token is
// configured, and every call must present it in X-Admin-Token. Changes take
// effect on the next admission since the pipeline reads the pattern document
// fresh per request.
package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/formgate/go-form-relay/internal/origin"
)

// HeaderAdminToken authenticates administrative requests.
const HeaderAdminToken = "X-Admin-Token"

// AdminHandler implements the origin allow-list CRUD.
type AdminHandler struct {
	Origins *origin.Provider
	Token   string
}

// Auth is a route-group middleware rejecting requests without the configured
// admin token. The comparison is constant-time so response timing leaks
// nothing about the token; an empty configured token never matches.
func (a *AdminHandler) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderAdminToken)
		if a.Token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(a.Token)) != 1 {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or invalid admin token")
			return
		}
		c.Next()
	}
}

// originsResponse lists the dynamic patterns.
type originsResponse struct {
	Status  string   `json:"status"`
	Origins []string `json:"origins"`
}

// addOriginRequest is the POST payload.
type addOriginRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

// ListOrigins handles GET /admin/origins.
func (a *AdminHandler) ListOrigins(c *gin.Context) {
	patterns, err := a.Origins.Dynamic(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "origin store unavailable")
		return
	}
	if patterns == nil {
		patterns = []string{}
	}
	c.JSON(http.StatusOK, originsResponse{Status: "ok", Origins: patterns})
}

// AddOrigin handles POST /admin/origins.
func (a *AdminHandler) AddOrigin(c *gin.Context) {
	var req addOriginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Pattern) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pattern is required")
		return
	}
	if err := a.Origins.Add(c.Request.Context(), req.Pattern); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "origin store unavailable")
		return
	}
	c.JSON(http.StatusOK, Response{Status: "ok"})
}

// RemoveOrigin handles DELETE /admin/origins/:pattern.
func (a *AdminHandler) RemoveOrigin(c *gin.Context) {
	pattern := c.Param("pattern")
	if strings.TrimSpace(pattern) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pattern is required")
		return
	}
	if err := a.Origins.Remove(c.Request.Context(), pattern); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "origin store unavailable")
		return
	}
	c.JSON(http.StatusOK, Response{Status: "ok"})
}
