// Package ledger keeps a user's stored balance consistent with the
// transactions recorded against it and computes summaries of a ledger.
//
// Only adding a transaction moves the balance. Deleting a transaction or
// changing its amount leaves the balance as it was; Drift reports the
// resulting difference.
package ledger

import (
	"context"
	"strings"
	"time"

	"walley/internal/models"
	"walley/internal/storage"

	"github.com/shopspring/decimal"
)

// Reconciler applies ledger mutations together with their balance effects.
type Reconciler struct {
	db *storage.DB
}

// NewReconciler creates a Reconciler backed by db.
func NewReconciler(db *storage.DB) *Reconciler {
	return &Reconciler{db: db}
}

// AddTransaction records a transaction and adds its amount to the owner's
// balance. Both writes commit together or not at all.
func (r *Reconciler) AddTransaction(ctx context.Context, in models.NewTransaction) (*models.Transaction, error) {
	email := in.Email
	category := strings.TrimSpace(in.Category)
	if strings.TrimSpace(email) == "" || in.Amount == nil || category == "" {
		return nil, models.ErrMissingFields
	}

	t := &models.Transaction{
		UserEmail: email,
		Amount:    *in.Amount,
		Category:  category,
		Notes:     in.Notes,
	}
	if in.Date != nil {
		t.Date = *in.Date
	} else {
		t.Date = time.Now()
	}

	err := r.db.InTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetUserByEmail(ctx, email); err != nil {
			return err
		}
		if _, err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, email, t.Amount)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTransaction patches a transaction. The owner's balance is not
// recomputed, even when the amount changes.
func (r *Reconciler) UpdateTransaction(ctx context.Context, id int64, patch models.TransactionPatch) error {
	if id == 0 {
		return models.ErrMissingID
	}
	if patch.IsEmpty() {
		return models.ErrNoFields
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return models.ValidationError{Field: "category", Message: "must not be empty"}
	}
	return r.db.UpdateTransaction(ctx, id, patch)
}

// DeleteTransaction removes a transaction without adjusting the balance.
func (r *Reconciler) DeleteTransaction(ctx context.Context, id int64) error {
	if id == 0 {
		return models.ErrMissingID
	}
	return r.db.DeleteTransaction(ctx, id)
}

// DeleteUser removes the user identified by email along with every
// transaction it owns.
func (r *Reconciler) DeleteUser(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return models.ErrMissingEmail
	}
	return r.db.InTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.DeleteTransactionsByOwner(ctx, email); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, email)
	})
}

// UpdateUser patches the name, balance or savings of a user. Balance edits
// made here are not reflected in the ledger.
func (r *Reconciler) UpdateUser(ctx context.Context, email string, patch models.UserPatch) error {
	if strings.TrimSpace(email) == "" {
		return models.ErrMissingEmail
	}
	if patch.IsEmpty() {
		return models.ErrNoFields
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.ValidationError{Field: "name", Message: "must not be empty"}
	}
	return r.db.UpdateUser(ctx, email, patch)
}

// GetTransaction returns a single transaction.
func (r *Reconciler) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	if id == 0 {
		return nil, models.ErrMissingID
	}
	return r.db.GetTransaction(ctx, id)
}

// History returns the ledger of email ordered by date.
func (r *Reconciler) History(ctx context.Context, email string) ([]models.Transaction, error) {
	_, history, err := r.UserWithHistory(ctx, email)
	return history, err
}

// UserWithHistory returns the user identified by email and its ledger.
func (r *Reconciler) UserWithHistory(ctx context.Context, email string) (*models.User, []models.Transaction, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil, models.ErrMissingEmail
	}
	user, err := r.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	history, err := r.db.ListTransactionsByOwner(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	return user, history, nil
}

// GetUserByID returns the user with the given id.
func (r *Reconciler) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if id == 0 {
		return nil, models.ValidationError{Field: "id", Message: "missing user id"}
	}
	return r.db.GetUserByID(ctx, id)
}

// Summary aggregates the ledger of email. Every field is zero for an empty ledger.
func (r *Reconciler) Summary(ctx context.Context, email string) (models.Summary, error) {
	totals, err := r.db.TransactionTotals(ctx, email)
	if err != nil {
		return models.Summary{}, err
	}

	s := models.Summary{
		TotalSpent:       totals.Spent,
		TotalDeposited:   totals.Deposited,
		AverageAmount:    decimal.Zero,
		TransactionCount: totals.Count,
	}
	if totals.Count > 0 {
		s.AverageAmount = decimal.NewFromInt(totals.Sum).Div(decimal.NewFromInt(totals.Count))
	}
	return s, nil
}

// MonthRange returns the first instant of the month and of the month after it, in UTC.
func MonthRange(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, models.ValidationError{Field: "month", Message: "month must be between 1 and 12"}
	}
	if year < 1 || year > 9999 {
		return time.Time{}, time.Time{}, models.ValidationError{Field: "year", Message: "invalid year"}
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}

// Categories splits the spending of email in [from, to) by category.
// Shares are percentages of the period's total spending rounded to two places.
func (r *Reconciler) Categories(ctx context.Context, email string, from, to time.Time) (models.Breakdown, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return models.Breakdown{}, models.ValidationError{Field: "to", Message: "period end must be after its start"}
	}

	b := models.Breakdown{From: from, To: to, Categories: []models.CategorySpend{}}
	err := r.db.InTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetUserByEmail(ctx, email); err != nil {
			return err
		}
		totals, err := tx.CategoryTotals(ctx, email, from, to)
		if err != nil {
			return err
		}
		for _, ct := range totals {
			b.TotalSpent += ct.Total
		}
		for _, ct := range totals {
			share := decimal.Zero
			if b.TotalSpent != 0 {
				share = decimal.NewFromInt(ct.Total).
					Mul(decimal.NewFromInt(100)).
					Div(decimal.NewFromInt(b.TotalSpent)).
					Round(2)
			}
			b.Categories = append(b.Categories, models.CategorySpend{
				Category: ct.Category,
				Total:    ct.Total,
				Count:    ct.Count,
				Share:    share,
			})
		}
		return nil
	})
	if err != nil {
		return models.Breakdown{}, err
	}
	return b, nil
}

// Drift returns the stored balance of email minus the sum of its ledger.
// It is zero unless transactions were deleted, amounts were patched or the
// balance was edited directly.
func (r *Reconciler) Drift(ctx context.Context, email string) (int64, error) {
	var drift int64
	err := r.db.InTx(ctx, func(tx *storage.Tx) error {
		user, err := tx.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		totals, err := tx.TransactionTotals(ctx, email)
		if err != nil {
			return err
		}
		drift = user.Balance - totals.Sum
		return nil
	})
	return drift, err
}
