package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	accessTokenParam = "access_token"
	ctxOperatorID    = "operator_id"

	errMissingToken = "missing Authorization header"
	errTokenFormat  = "invalid Authorization header format"
	errBadToken     = "invalid or expired token"
)

// requireOperator admits requests that carry a token issued at sign-in and stores
// the operator id for later handlers and logs.
func (h *Handler) requireOperator(c *gin.Context) {
	token, msg := bearerToken(c)
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	id, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
		return
	}

	c.Set(ctxOperatorID, id)
	c.Next()
}

// operatorID returns the id stored by requireOperator, or 0 on open routes.
func operatorID(c *gin.Context) int {
	return c.GetInt(ctxOperatorID)
}

// bearerToken extracts the token from the Authorization header. Browsers cannot set
// headers on a websocket handshake, so a request without the header may pass it as
// ?access_token= instead.
func bearerToken(c *gin.Context) (token, msg string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := c.Query(accessTokenParam); q != "" {
			return q, ""
		}
		return "", errMissingToken
	}

	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || tok == "" {
		return "", errTokenFormat
	}
	return tok, ""
}
