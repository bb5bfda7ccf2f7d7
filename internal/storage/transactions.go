package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"walley/internal/models"
)

// dateLayout is fixed width so that text ordering matches chronological ordering.
const dateLayout = "2006-01-02T15:04:05.000000Z"

const transactionColumns = "id, user_email, amount, category, notes, date"

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// InsertTransaction inserts t and stores the generated id in t.ID.
// A zero date is replaced by the current time.
func (s queries) InsertTransaction(ctx context.Context, t *models.Transaction) (int64, error) {
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	t.Date = t.Date.UTC().Truncate(time.Microsecond)

	err := s.queryRow(ctx,
		"INSERT INTO transactions (user_email, amount, category, notes, date) VALUES (?, ?, ?, ?, ?) RETURNING id",
		t.UserEmail, t.Amount, t.Category, nullString(t.Notes), formatDate(t.Date),
	).Scan(&t.ID)
	if err != nil {
		return 0, models.Infra("insert transaction", err)
	}
	return t.ID, nil
}

// GetTransaction retrieves a single transaction by ID.
func (s queries) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	row := s.queryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, models.Infra("get transaction", err)
	}
	return t, nil
}

// ListTransactionsByOwner retrieves the ledger of email ordered by date ascending.
func (s queries) ListTransactionsByOwner(ctx context.Context, email string) ([]models.Transaction, error) {
	rows, err := s.query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_email = ? ORDER BY date, id",
		email,
	)
	if err != nil {
		return nil, models.Infra("list transactions", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, models.Infra("list transactions", err)
		}
		transactions = append(transactions, *t)
	}

	return transactions, models.Infra("list transactions", rows.Err())
}

// UpdateTransaction applies patch to the transaction with the given id.
// Only the columns named by the patch type can ever be written.
func (s queries) UpdateTransaction(ctx context.Context, id int64, patch models.TransactionPatch) error {
	var sets []string
	var args []any
	if patch.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *patch.Amount)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	switch {
	case patch.Notes != nil:
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	case patch.ClearNotes:
		sets = append(sets, "notes = NULL")
	}
	if patch.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, formatDate(*patch.Date))
	}
	if len(sets) == 0 {
		return models.ErrNoFields
	}
	args = append(args, id)

	result, err := s.exec(ctx, "UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return expectRow(result, err, "update transaction", models.ErrTransactionNotFound)
}

// DeleteTransaction removes a transaction by ID. Deleting an absent id is not an error.
func (s queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := s.exec(ctx, "DELETE FROM transactions WHERE id = ?", id)
	return models.Infra("delete transaction", err)
}

// DeleteTransactionsByOwner removes every transaction of email and returns how many were removed.
func (s queries) DeleteTransactionsByOwner(ctx context.Context, email string) (int64, error) {
	result, err := s.exec(ctx, "DELETE FROM transactions WHERE user_email = ?", email)
	if err != nil {
		return 0, models.Infra("delete transactions", err)
	}
	n, err := result.RowsAffected()
	return n, models.Infra("delete transactions", err)
}

// Totals are the raw aggregates of a ledger.
type Totals struct {
	Spent     int64
	Deposited int64
	Sum       int64
	Count     int64
}

// TransactionTotals aggregates the ledger of email in a single statement.
func (s queries) TransactionTotals(ctx context.Context, email string) (Totals, error) {
	var t Totals
	err := s.queryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN amount < 0 THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0),
			COALESCE(SUM(amount), 0),
			COUNT(*)
		FROM transactions
		WHERE user_email = ?
	`, email).Scan(&t.Spent, &t.Deposited, &t.Sum, &t.Count)
	return t, models.Infra("transaction totals", err)
}

// CategoryTotal is the spending of one category.
type CategoryTotal struct {
	Category string
	Total    int64
	Count    int64
}

// CategoryTotals sums the expenses of email per category for dates in [from, to).
// A zero bound is not applied. Categories are ordered by spending, largest first.
func (s queries) CategoryTotals(ctx context.Context, email string, from, to time.Time) ([]CategoryTotal, error) {
	query := "SELECT category, SUM(amount), COUNT(*) FROM transactions WHERE user_email = ? AND amount < 0"
	args := []any{email}
	if !from.IsZero() {
		query += " AND date >= ?"
		args = append(args, formatDate(from))
	}
	if !to.IsZero() {
		query += " AND date < ?"
		args = append(args, formatDate(to))
	}
	query += " GROUP BY category ORDER BY SUM(amount), category"

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, models.Infra("category totals", err)
	}
	defer rows.Close()

	totals := []CategoryTotal{}
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, models.Infra("category totals", err)
		}
		totals = append(totals, ct)
	}
	return totals, models.Infra("category totals", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var t models.Transaction
	var notes sql.NullString
	var date string
	if err := row.Scan(&t.ID, &t.UserEmail, &t.Amount, &t.Category, &notes, &date); err != nil {
		return nil, err
	}
	if notes.Valid {
		t.Notes = &notes.String
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, err
	}
	t.Date = parsed
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
