package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents an account holder. Balance and Savings are in currency minor units.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Balance      int64  `json:"balance"`
	Savings      int64  `json:"savings"`
}

// Identity is the snapshot of a user bound to a session at login time.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Identity returns the session snapshot of u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name}
}

// Transaction is one ledger entry. A positive Amount is a deposit, a negative one an expense.
type Transaction struct {
	ID        int64     `json:"id"`
	UserEmail string    `json:"user_email"`
	Amount    int64     `json:"amount"`
	Category  string    `json:"category"`
	Notes     *string   `json:"notes"`
	Date      time.Time `json:"date"`
}

// NewTransaction carries the input of an add operation. Amount is a pointer so
// that an explicit zero can be told apart from a missing value.
type NewTransaction struct {
	Email    string
	Amount   *int64
	Category string
	Notes    *string
	Date     *time.Time
}

// TransactionPatch lists the fields of a transaction that may be changed.
// Nil members are left untouched. ClearNotes sets the notes back to null
// and is ignored when Notes is set.
type TransactionPatch struct {
	Amount     *int64
	Category   *string
	Notes      *string
	ClearNotes bool
	Date       *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Notes == nil && !p.ClearNotes && p.Date == nil
}

// UserPatch lists the fields of a user that may be changed after registration.
type UserPatch struct {
	Name    *string
	Balance *int64
	Savings *int64
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Balance == nil && p.Savings == nil
}

// Summary holds aggregates over a user's transactions.
type Summary struct {
	TotalSpent       int64           `json:"total_spent"`
	TotalDeposited   int64           `json:"total_deposit"`
	AverageAmount    decimal.Decimal `json:"avg_amount"`
	TransactionCount int64           `json:"transaction_count"`
}

// CategorySpend is the spending of one category within a Breakdown.
type CategorySpend struct {
	Category string `json:"category"`
	// Total is the raw negative sum of the category's expenses.
	Total int64 `json:"total"`
	Count int64 `json:"count"`
	// Share is the category's percentage of Breakdown.TotalSpent.
	Share decimal.Decimal `json:"share"`
}

// Breakdown splits a user's spending over a period by category.
// Zero From or To leave that end of the period open.
type Breakdown struct {
	From       time.Time       `json:"-"`
	To         time.Time       `json:"-"`
	TotalSpent int64           `json:"total_spent"`
	Categories []CategorySpend `json:"categories"`
}
