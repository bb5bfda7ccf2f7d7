package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"walley/internal/models"

	"github.com/gin-gonic/gin"
)

type addTransactionRequest struct {
	Email    string  `json:"email"`
	Amount   *int64  `json:"amount"`
	Category string  `json:"category"`
	Notes    *string `json:"notes"`
	Date     *string `json:"date"`
}

// updateTransactionRequest is decoded strictly: any field outside the
// patchable set is rejected.
type updateTransactionRequest struct {
	ID       int64          `json:"id"`
	Amount   *int64         `json:"amount"`
	Category *string        `json:"category"`
	Notes    optionalString `json:"notes"`
	Date     *string        `json:"date"`
}

// optionalString tells an absent key apart from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}

type idRequest struct {
	ID int64 `json:"id"`
}

type categoryResponse struct {
	Category string      `json:"category"`
	Total    int64       `json:"total"`
	Count    int64       `json:"count"`
	Share    json.Number `json:"share"`
}

type breakdownResponse struct {
	From       *time.Time         `json:"from,omitempty"`
	To         *time.Time         `json:"to,omitempty"`
	TotalSpent int64              `json:"total_spent"`
	Categories []categoryResponse `json:"categories"`
}

type summaryResponse struct {
	TotalSpent       int64       `json:"total_spent"`
	TotalDeposited   int64       `json:"total_deposit"`
	AverageAmount    json.Number `json:"avg_amount"`
	TransactionCount int64       `json:"transaction_count"`
}

// AddTransaction records a transaction and moves the owner's balance.
// The owner defaults to the logged in user.
func (h *Handlers) AddTransaction(c *gin.Context) {
	var req addTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if req.Email == "" {
		req.Email = currentIdentity(c).Email
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}

	t, err := h.reconciler.AddTransaction(c.Request.Context(), models.NewTransaction{
		Email:    req.Email,
		Amount:   req.Amount,
		Category: req.Category,
		Notes:    req.Notes,
		Date:     date,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction added successfully", "id": t.ID})
}

// TransactionHistory lists the ledger of the logged in user.
func (h *Handlers) TransactionHistory(c *gin.Context) {
	transactions, err := h.reconciler.History(c.Request.Context(), currentIdentity(c).Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransaction returns a single transaction.
func (h *Handlers) GetTransaction(c *gin.Context) {
	id, err := queryID(c, "id", models.ErrMissingID)
	if err != nil {
		writeError(c, err)
		return
	}
	t, err := h.reconciler.GetTransaction(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateTransaction patches a transaction. The balance is left untouched.
func (h *Handlers) UpdateTransaction(c *gin.Context) {
	var req updateTransactionRequest
	if err := decodeStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(c, err)
		return
	}

	patch := models.TransactionPatch{
		Amount:     req.Amount,
		Category:   req.Category,
		Notes:      req.Notes.Value,
		ClearNotes: req.Notes.Set && req.Notes.Value == nil,
		Date:       date,
	}
	if err := h.reconciler.UpdateTransaction(c.Request.Context(), req.ID, patch); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction updated"})
}

// DeleteTransaction removes a transaction. The balance is left untouched.
func (h *Handlers) DeleteTransaction(c *gin.Context) {
	var req idRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	if err := h.reconciler.DeleteTransaction(c.Request.Context(), req.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

// Summary returns the aggregates of the logged in user's ledger.
func (h *Handlers) Summary(c *gin.Context) {
	s, err := h.reconciler.Summary(c.Request.Context(), currentIdentity(c).Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryResponse{
		TotalSpent:       s.TotalSpent,
		TotalDeposited:   s.TotalDeposited,
		AverageAmount:    json.Number(s.AverageAmount.String()),
		TransactionCount: s.TransactionCount,
	})
}

// CategoryBreakdown splits the logged in user's spending by category,
// optionally within ?year= and ?month=.
func (h *Handlers) CategoryBreakdown(c *gin.Context) {
	from, to, err := queryPeriod(c)
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := h.reconciler.Categories(c.Request.Context(), currentIdentity(c).Email, from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := breakdownResponse{
		TotalSpent: b.TotalSpent,
		Categories: make([]categoryResponse, 0, len(b.Categories)),
	}
	if !from.IsZero() {
		resp.From, resp.To = &from, &to
	}
	for _, cs := range b.Categories {
		resp.Categories = append(resp.Categories, categoryResponse{
			Category: cs.Category,
			Total:    cs.Total,
			Count:    cs.Count,
			Share:    json.Number(cs.Share.StringFixed(2)),
		})
	}
	c.JSON(http.StatusOK, resp)
}
