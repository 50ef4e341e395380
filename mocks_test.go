package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	auth "github.com/osamaamr397/book-network-auth"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockUsers implements auth.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	return m.RegisterTx(ctx, nil, user)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	if u, ok := args.Get(0).(*auth.User); ok && u != nil {
		return u, args.Error(1)
	}
	// echo the input back the way the real repository does
	if args.Error(1) == nil {
		return user, nil
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.GetByIDTx(ctx, nil, id)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, tx, id)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return m.GetByEmailTx(ctx, nil, email)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Enable(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.EnableTx(ctx, nil, id)
}

func (m *MockUsers) EnableTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, tx, id)
	if u, ok := args.Get(0).(*auth.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockActivationTokens implements auth.ActivationTokens
type MockActivationTokens struct {
	mock.Mock
}

func (m *MockActivationTokens) Issue(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) (*auth.ActivationToken, error) {
	return m.IssueTx(ctx, nil, userID, code, ttl)
}

func (m *MockActivationTokens) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code string, ttl time.Duration) (*auth.ActivationToken, error) {
	args := m.Called(ctx, tx, userID, code, ttl)
	if t, ok := args.Get(0).(*auth.ActivationToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivationTokens) GetByToken(ctx context.Context, token string) (*auth.ActivationToken, error) {
	return m.GetByTokenTx(ctx, nil, token)
}

func (m *MockActivationTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*auth.ActivationToken, error) {
	args := m.Called(ctx, tx, token)
	if t, ok := args.Get(0).(*auth.ActivationToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivationTokens) MarkValidated(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.MarkValidatedTx(ctx, nil, id, at)
}

func (m *MockActivationTokens) MarkValidatedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, tx, id, at)
	return args.Error(0)
}

// MockRoles implements auth.Roles
type MockRoles struct {
	mock.Mock
}

func (m *MockRoles) GetByName(ctx context.Context, name string) (*auth.Role, error) {
	return m.GetByNameTx(ctx, nil, name)
}

func (m *MockRoles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*auth.Role, error) {
	args := m.Called(ctx, tx, name)
	if r, ok := args.Get(0).(*auth.Role); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeRepoManager wires the mock repos behind auth.RepositoryManager and
// runs transaction bodies inline.
type fakeRepoManager struct {
	users  *MockUsers
	tokens *MockActivationTokens
	roles  *MockRoles
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:  &MockUsers{},
		tokens: &MockActivationTokens{},
		roles:  &MockRoles{},
	}
}

func (m *fakeRepoManager) Validate() error { return nil }

func (m *fakeRepoManager) MustValidate() {}

func (m *fakeRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(context.Context, bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *fakeRepoManager) Users() auth.Users { return m.users }

func (m *fakeRepoManager) ActivationTokens() auth.ActivationTokens { return m.tokens }

func (m *fakeRepoManager) Roles() auth.Roles { return m.roles }

// capturingMailer records enqueued notifications synchronously
type capturingMailer struct {
	mu   sync.Mutex
	sent []auth.Notification
}

func (c *capturingMailer) Enqueue(msg auth.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
}

func (c *capturingMailer) Sent() []auth.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.Notification, len(c.sent))
	copy(out, c.sent)
	return out
}

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (auth.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if id, ok := args.Get(0).(auth.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (auth.Identity, error) {
	args := m.Called(ctx, identifier)
	if id, ok := args.Get(0).(auth.Identity); ok {
		return id, args.Error(1)
	}
	return nil, args.Error(1)
}

// testConfig implements auth.Config
type testConfig struct {
	signingKey      string
	issuer          string
	audience        []string
	tokenExpiration int
	activationURL   string
	codeLength      int
	tokenTTL        time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-key",
		issuer:          "book-network",
		tokenExpiration: 24,
		activationURL:   "https://app.example.com/activate-account",
		codeLength:      6,
		tokenTTL:        15 * time.Minute,
	}
}

func (c *testConfig) GetSigningKey() string { return c.signingKey }
func (c *testConfig) GetIssuer() string { return c.issuer }
func (c *testConfig) GetAudience() []string { return c.audience }
func (c *testConfig) GetTokenExpiration() int { return c.tokenExpiration }
func (c *testConfig) GetActivationURL() string { return c.activationURL }
func (c *testConfig) GetActivationCodeLength() int { return c.codeLength }
func (c *testConfig) GetActivationTokenTTL() time.Duration { return c.tokenTTL }

// testLogger swallows output during tests
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
