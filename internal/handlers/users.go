package handlers

import (
	"net/http"

	"walley/internal/models"

	"github.com/gin-gonic/gin"
)

type userResponse struct {
	*models.User
	SpendingHistory []models.Transaction `json:"spendingHistory"`
}

type updateUserRequest struct {
	Email   string  `json:"email"`
	Name    *string `json:"name"`
	Balance *int64  `json:"balance"`
	Savings *int64  `json:"savings"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// GetUser returns a user and its ledger. The email defaults to the logged in user.
func (h *Handlers) GetUser(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		email = currentIdentity(c).Email
	}
	user, history, err := h.reconciler.UserWithHistory(c.Request.Context(), email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user, SpendingHistory: history})
}

// GetUserByID returns a user by numeric id.
func (h *Handlers) GetUserByID(c *gin.Context) {
	id, err := queryID(c, "id", models.ValidationError{Field: "id", Message: "missing user id"})
	if err != nil {
		writeError(c, err)
		return
	}
	user, err := h.reconciler.GetUserByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser patches the name, balance or savings of a user.
func (h *Handlers) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := decodeStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	patch := models.UserPatch{Name: req.Name, Balance: req.Balance, Savings: req.Savings}
	if err := h.reconciler.UpdateUser(c.Request.Context(), req.Email, patch); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

// DeleteUser removes a user and its transactions.
func (h *Handlers) DeleteUser(c *gin.Context) {
	var req emailRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if err := h.reconciler.DeleteUser(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	h.gateway.RevokeUser(req.Email)
	c.JSON(http.StatusOK, gin.H{"message": "User and their transactions deleted"})
}
