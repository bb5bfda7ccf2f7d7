package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"walley/internal/models"
)

// CredentialStore persists users and their password hashes.
type CredentialStore interface {
	CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Gateway registers users, issues and revokes session tokens and resolves
// tokens to identities.
type Gateway struct {
	store    CredentialStore
	sessions *Registry
}

// NewGateway creates a Gateway backed by store and sessions.
func NewGateway(store CredentialStore, sessions *Registry) *Gateway {
	return &Gateway{store: store, sessions: sessions}
}

// Sessions returns the registry the gateway issues tokens into.
func (g *Gateway) Sessions() *Registry {
	return g.sessions
}

// Register creates a user with a hashed password and zeroed balances.
// The email is stored exactly as given; a blank email is missing.
func (g *Gateway) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(email) == "" || password == "" || name == "" {
		return nil, models.ErrMissingFields
	}

	// pre-check existing; the unique index still catches a concurrent insert
	_, err := g.store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, models.ErrEmailInUse
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return g.store.CreateUser(ctx, email, hash, name)
}

// Login checks the credentials and binds a new token to the user's identity.
// An unknown email and a wrong password fail with the same error.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, models.Identity, error) {
	user, err := g.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			CheckPassword(password, dummyHash())
			return "", models.Identity{}, models.ErrInvalidCredentials
		}
		return "", models.Identity{}, err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return "", models.Identity{}, models.ErrInvalidCredentials
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return "", models.Identity{}, models.Infra("generate session token", err)
	}
	identity := user.Identity()
	g.sessions.Insert(token, identity)
	return token, identity, nil
}

// Logout revokes token. Revoking a token that is not live fails with ErrNotLoggedIn.
func (g *Gateway) Logout(token string) error {
	if token == "" || !g.sessions.Remove(token) {
		return models.ErrNotLoggedIn
	}
	return nil
}

// RevokeUser revokes every session of the user with the given email. It is
// called once the user is deleted so that no token outlives its user.
func (g *Gateway) RevokeUser(email string) int {
	return g.sessions.RemoveEmail(email)
}

// Resolve returns the identity bound to token.
func (g *Gateway) Resolve(token string) (models.Identity, bool) {
	if token == "" {
		return models.Identity{}, false
	}
	s, ok := g.sessions.Lookup(token)
	return s.Identity, ok
}
