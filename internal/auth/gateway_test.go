package auth

import (
	"context"
	"errors"
	"testing"

	"walley/internal/models"
	"walley/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// GatewayTestSuite provides a test suite for registration and sessions
type GatewayTestSuite struct {
	suite.Suite
	db      *storage.DB
	gateway *Gateway
	ctx     context.Context
}

// SetupTest runs before each test
func (suite *GatewayTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.gateway = NewGateway(db, NewRegistry(0))
	suite.ctx = context.Background()
}

// TearDownTest runs after each test
func (suite *GatewayTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *GatewayTestSuite) TestRegisterThenLogin() {
	user, err := suite.gateway.Register(suite.ctx, "a@x.com", "pw", "A")
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), user.Balance)
	assert.Zero(suite.T(), user.Savings)
	assert.NotEqual(suite.T(), "pw", user.PasswordHash)

	token, identity, err := suite.gateway.Login(suite.ctx, "a@x.com", "pw")
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), token)
	assert.Equal(suite.T(), models.Identity{ID: user.ID, Email: "a@x.com", Name: "A"}, identity)

	resolved, ok := suite.gateway.Resolve(token)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), identity, resolved)
}

func (suite *GatewayTestSuite) TestRegisterMissingFields() {
	cases := []struct{ email, password, name string }{
		{"", "pw", "A"},
		{"a@x.com", "", "A"},
		{"a@x.com", "pw", ""},
		{"   ", "pw", "A"},
	}
	for _, c := range cases {
		_, err := suite.gateway.Register(suite.ctx, c.email, c.password, c.name)
		assert.ErrorIs(suite.T(), err, models.ErrMissingFields)
		assert.ErrorIs(suite.T(), err, models.ErrValidation)
	}
}

func (suite *GatewayTestSuite) TestEmailMatchesExactly() {
	_, err := suite.gateway.Register(suite.ctx, " a@x.com", "pw", "A")
	require.NoError(suite.T(), err)

	stored, err := suite.db.GetUserByEmail(suite.ctx, " a@x.com")
	require.NoError(suite.T(), err, "email is stored as given")
	assert.Equal(suite.T(), " a@x.com", stored.Email)
	_, err = suite.db.GetUserByEmail(suite.ctx, "a@x.com")
	assert.ErrorIs(suite.T(), err, models.ErrUserNotFound)

	_, _, err = suite.gateway.Login(suite.ctx, "a@x.com", "pw")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidCredentials)
	_, _, err = suite.gateway.Login(suite.ctx, "A@x.com", "pw")
	assert.ErrorIs(suite.T(), err, models.ErrInvalidCredentials)

	_, identity, err := suite.gateway.Login(suite.ctx, " a@x.com", "pw")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), " a@x.com", identity.Email)

	// A different spelling is a different account
	_, err = suite.gateway.Register(suite.ctx, "a@x.com", "pw", "B")
	assert.NoError(suite.T(), err)
}

func (suite *GatewayTestSuite) TestRegisterDuplicateEmail() {
	_, err := suite.gateway.Register(suite.ctx, "a@x.com", "pw", "A")
	require.NoError(suite.T(), err)

	_, err = suite.gateway.Register(suite.ctx, "a@x.com", "other", "B")
	assert.ErrorIs(suite.T(), err, models.ErrEmailInUse)
	assert.Equal(suite.T(), "conflict", models.Kind(err))
}

func (suite *GatewayTestSuite) TestLoginFailuresAreUniform() {
	_, err := suite.gateway.Register(suite.ctx, "a@x.com", "pw", "A")
	require.NoError(suite.T(), err)

	_, _, wrongPassword := suite.gateway.Login(suite.ctx, "a@x.com", "nope")
	_, _, unknownEmail := suite.gateway.Login(suite.ctx, "b@x.com", "pw")

	assert.ErrorIs(suite.T(), wrongPassword, models.ErrInvalidCredentials)
	assert.Equal(suite.T(), wrongPassword, unknownEmail)
	assert.Equal(suite.T(), wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(suite.T(), 0, suite.gateway.Sessions().Len())
}

func (suite *GatewayTestSuite) TestLogoutTwice() {
	_, err := suite.gateway.Register(suite.ctx, "a@x.com", "pw", "A")
	require.NoError(suite.T(), err)
	token, _, err := suite.gateway.Login(suite.ctx, "a@x.com", "pw")
	require.NoError(suite.T(), err)

	assert.NoError(suite.T(), suite.gateway.Logout(token))
	assert.ErrorIs(suite.T(), suite.gateway.Logout(token), models.ErrNotLoggedIn)

	_, ok := suite.gateway.Resolve(token)
	assert.False(suite.T(), ok)
}

func (suite *GatewayTestSuite) TestConcurrentSessionsPerUser() {
	_, err := suite.gateway.Register(suite.ctx, "a@x.com", "pw", "A")
	require.NoError(suite.T(), err)

	first, _, err := suite.gateway.Login(suite.ctx, "a@x.com", "pw")
	require.NoError(suite.T(), err)
	second, _, err := suite.gateway.Login(suite.ctx, "a@x.com", "pw")
	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), first, second)

	require.NoError(suite.T(), suite.gateway.Logout(first))
	_, ok := suite.gateway.Resolve(second)
	assert.True(suite.T(), ok)
}

func (suite *GatewayTestSuite) TestResolveUnknownTokens() {
	_, ok := suite.gateway.Resolve("")
	assert.False(suite.T(), ok)
	_, ok = suite.gateway.Resolve("never-issued")
	assert.False(suite.T(), ok)
	assert.ErrorIs(suite.T(), suite.gateway.Logout(""), models.ErrNotLoggedIn)
}

type brokenStore struct{}

var errDiskGone = errors.New("disk gone")

func (brokenStore) CreateUser(context.Context, string, string, string) (*models.User, error) {
	return nil, models.Infra("create user", errDiskGone)
}

func (brokenStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, models.Infra("get user", errDiskGone)
}

func TestGatewayStoreFailuresAreNotCredentialErrors(t *testing.T) {
	g := NewGateway(brokenStore{}, NewRegistry(0))

	_, _, err := g.Login(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, models.ErrInfrastructure)
	assert.ErrorIs(t, err, errDiskGone)
	assert.False(t, errors.Is(err, models.ErrAuthentication))

	_, err = g.Register(context.Background(), "a@x.com", "pw", "A")
	assert.ErrorIs(t, err, models.ErrInfrastructure)
	assert.False(t, errors.Is(err, models.ErrNotFound))
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}
