package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"walley/internal/models"
)

const userColumns = "id, email, password_hash, name, balance, savings"

// CreateUser creates a new user with zeroed balance and savings.
func (s queries) CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	var id int64
	err := s.queryRow(ctx,
		"INSERT INTO users (email, password_hash, name, balance, savings) VALUES (?, ?, ?, 0, 0) RETURNING id",
		email, passwordHash, name,
	).Scan(&id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.ErrEmailInUse
		}
		return nil, models.Infra("create user", err)
	}

	return &models.User{ID: id, Email: email, PasswordHash: passwordHash, Name: name}, nil
}

// GetUserByID retrieves a user by ID.
func (s queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByEmail retrieves a user by email. The match is exact.
func (s queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

func (s queries) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Balance, &u.Savings); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, models.Infra("get user", err)
	}
	return &u, nil
}

// UpdateUser applies patch to the user identified by email.
func (s queries) UpdateUser(ctx context.Context, email string, patch models.UserPatch) error {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Balance != nil {
		sets = append(sets, "balance = ?")
		args = append(args, *patch.Balance)
	}
	if patch.Savings != nil {
		sets = append(sets, "savings = ?")
		args = append(args, *patch.Savings)
	}
	if len(sets) == 0 {
		return models.ErrNoFields
	}
	args = append(args, email)

	result, err := s.exec(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE email = ?", args...)
	return expectRow(result, err, "update user", models.ErrUserNotFound)
}

// AdjustBalance adds delta to the stored balance of the user identified by email.
// The update is relative, so concurrent adjustments are never lost.
func (s queries) AdjustBalance(ctx context.Context, email string, delta int64) error {
	result, err := s.exec(ctx, "UPDATE users SET balance = balance + ? WHERE email = ?", delta, email)
	return expectRow(result, err, "adjust balance", models.ErrUserNotFound)
}

// DeleteUser removes the user identified by email. Deleting an absent user is not an error.
func (s queries) DeleteUser(ctx context.Context, email string) error {
	_, err := s.exec(ctx, "DELETE FROM users WHERE email = ?", email)
	return models.Infra("delete user", err)
}

// UserCount returns the number of users in the database.
func (s queries) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, models.Infra("count users", err)
}

// expectRow turns an update that matched no row into notFound.
func expectRow(result sql.Result, err error, op string, notFound error) error {
	if err != nil {
		return models.Infra(op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return models.Infra(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
