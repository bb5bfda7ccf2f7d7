package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register handles account creation.
func (h *Handlers) Register(c *gin.Context) {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if _, err := h.gateway.Register(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully"})
}

// Login handles credential checks and issues a session token.
func (h *Handlers) Login(c *gin.Context) {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	token, identity, err := h.gateway.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"name":    identity.Name,
		"email":   identity.Email,
		"token":   token,
	})
}

// Logout revokes the session token of the request.
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.gateway.Logout(c.GetString(tokenKey)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// SessionUser returns the identity bound to the session.
func (h *Handlers) SessionUser(c *gin.Context) {
	c.JSON(http.StatusOK, currentIdentity(c))
}
