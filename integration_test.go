package auth_test

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	auth "github.com/osamaamr397/book-network-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []any{
		(*auth.Role)(nil),
		(*auth.User)(nil),
		(*auth.ActivationToken)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	return db
}

func seedDefaultRole(t *testing.T, db *bun.DB) {
	t.Helper()
	role := &auth.Role{ID: uuid.New(), Name: auth.RoleUser}
	_, err := db.NewInsert().Model(role).Exec(context.Background())
	require.NoError(t, err)
}

func countActivationTokens(t *testing.T, db *bun.DB) int {
	t.Helper()
	count, err := db.NewSelect().Model((*auth.ActivationToken)(nil)).Count(context.Background())
	require.NoError(t, err)
	return count
}

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestRegistrationActivationAuthenticationFlow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedDefaultRole(t, db)

	repo := auth.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())

	mailer := &capturingMailer{}
	config := newTestConfig()

	register := auth.NewRegisterUserHandler(repo, mailer, config).WithLogger(testLogger{})
	activate := auth.NewActivateAccountHandler(repo, mailer, config).WithLogger(testLogger{})

	// register
	err := register.Execute(ctx, auth.RegisterUserMessage{
		FirstName: "Ada",
		LastName:  "Byron",
		Email:     "a@b.com",
		Password:  "pw123",
	})
	require.NoError(t, err)

	user, err := repo.Users().GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, user.Enabled, "account starts disabled")
	assert.False(t, user.AccountLocked)
	assert.Equal(t, []string{auth.RoleUser}, user.Roles)
	assert.NotEqual(t, "pw123", user.PasswordHash)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@b.com", sent[0].To)
	assert.Regexp(t, sixDigits, sent[0].Code)
	assert.Equal(t, config.activationURL, sent[0].ActivationURL)
	assert.Equal(t, 1, countActivationTokens(t, db))

	stored, err := repo.ActivationTokens().GetByToken(ctx, sent[0].Code)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.UserID)
	assert.False(t, stored.IsConsumed())
	assert.WithinDuration(t, stored.CreatedAt.Add(config.tokenTTL), stored.ExpiresAt, time.Second)

	// activate
	err = activate.Execute(ctx, auth.ActivateAccountMessage{Token: sent[0].Code})
	require.NoError(t, err)

	user, err = repo.Users().GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, user.Enabled, "activation enables the account")

	stored, err = repo.ActivationTokens().GetByToken(ctx, sent[0].Code)
	require.NoError(t, err)
	assert.True(t, stored.IsConsumed())

	// a consumed code cannot be replayed
	err = activate.Execute(ctx, auth.ActivateAccountMessage{Token: sent[0].Code})
	require.Error(t, err)
	assert.True(t, auth.IsActivationTokenUsed(err))

	// authenticate
	provider := auth.NewUserProvider(repo.Users()).WithLogger(testLogger{})
	auther := auth.NewAuthenticator(provider, config).WithLogger(testLogger{})

	response, err := auther.Authenticate(ctx, "a@b.com", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, response.Token)

	claims, err := auther.TokenService().Validate(response.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Subject())
	assert.Equal(t, "Ada Byron", claims.FullName())

	// wrong password still fails after activation
	_, err = auther.Authenticate(ctx, "a@b.com", "wrong")
	require.Error(t, err)
	assert.True(t, auth.IsInvalidCredentials(err))
}

func TestExpiredTokenReissueFlow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedDefaultRole(t, db)

	repo := auth.NewRepositoryManager(db)
	mailer := &capturingMailer{}
	config := newTestConfig()

	register := auth.NewRegisterUserHandler(repo, mailer, config).WithLogger(testLogger{})
	err := register.Execute(ctx, auth.RegisterUserMessage{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
		Password:  "pw123",
	})
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	firstCode := sent[0].Code

	// drive the clock past the TTL so the first code reads as expired
	skewed := auth.NewActivateAccountHandler(repo, mailer, config).
		WithLogger(testLogger{}).
		WithClock(func() time.Time { return time.Now().Add(16 * time.Minute) })

	err = skewed.Execute(ctx, auth.ActivateAccountMessage{Token: firstCode})
	require.Error(t, err)
	assert.True(t, auth.IsActivationTokenExpired(err))

	sent = mailer.Sent()
	require.Len(t, sent, 2, "a replacement code goes out")
	assert.Equal(t, "grace@example.com", sent[1].To)
	assert.Regexp(t, sixDigits, sent[1].Code)
	assert.Equal(t, 2, countActivationTokens(t, db), "the replacement committed despite the error")

	user, err := repo.Users().GetByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.False(t, user.Enabled, "an expired code never activates")

	// the replacement code works under the real clock
	activate := auth.NewActivateAccountHandler(repo, mailer, config).WithLogger(testLogger{})
	err = activate.Execute(ctx, auth.ActivateAccountMessage{Token: sent[1].Code})
	require.NoError(t, err)

	user, err = repo.Users().GetByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.True(t, user.Enabled)
}

func TestDuplicateRegistrationFlow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedDefaultRole(t, db)

	repo := auth.NewRepositoryManager(db)
	mailer := &capturingMailer{}
	register := auth.NewRegisterUserHandler(repo, mailer, newTestConfig()).WithLogger(testLogger{})

	message := auth.RegisterUserMessage{
		FirstName: "Alan",
		LastName:  "Turing",
		Email:     "alan@example.com",
		Password:  "pw123",
	}

	require.NoError(t, register.Execute(ctx, message))

	err := register.Execute(ctx, message)
	require.Error(t, err)
	assert.True(t, auth.IsDuplicateEmail(err))

	assert.Len(t, mailer.Sent(), 1, "the losing registration sends nothing")
	assert.Equal(t, 1, countActivationTokens(t, db))
}

func TestActivationWithUnknownCode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedDefaultRole(t, db)

	repo := auth.NewRepositoryManager(db)
	activate := auth.NewActivateAccountHandler(repo, &capturingMailer{}, newTestConfig()).
		WithLogger(testLogger{})

	err := activate.Execute(ctx, auth.ActivateAccountMessage{Token: "000000"})
	require.Error(t, err)
	assert.True(t, auth.IsActivationTokenNotFound(err))
}

func TestRegistrationWithoutSeededRole(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	// deliberately no role seed

	repo := auth.NewRepositoryManager(db)
	register := auth.NewRegisterUserHandler(repo, &capturingMailer{}, newTestConfig()).
		WithLogger(testLogger{})

	err := register.Execute(ctx, auth.RegisterUserMessage{
		FirstName: "Rosalind",
		LastName:  "Franklin",
		Email:     "rosalind@example.com",
		Password:  "pw123",
	})
	require.Error(t, err)
	assert.True(t, auth.IsRoleNotConfigured(err))
}

func TestEnableLeavesUserRecordIntact(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedDefaultRole(t, db)

	repo := auth.NewRepositoryManager(db)

	user, err := repo.Users().Register(ctx, &auth.User{
		FirstName:    "Marsh",
		LastName:     "Ironeyes",
		Email:        "marsh@example.com",
		PasswordHash: "$2a$14$fixture-hash",
		Roles:        []string{auth.RoleUser},
	})
	require.NoError(t, err)

	enabled, err := repo.Users().Enable(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)

	// the account stays reachable by email with every column intact
	reloaded, err := repo.Users().GetByEmail(ctx, "marsh@example.com")
	require.NoError(t, err)
	assert.True(t, reloaded.Enabled)
	assert.Equal(t, "Marsh", reloaded.FirstName)
	assert.Equal(t, "Ironeyes", reloaded.LastName)
	assert.Equal(t, "$2a$14$fixture-hash", reloaded.PasswordHash)
	assert.Equal(t, []string{auth.RoleUser}, reloaded.Roles)
	assert.False(t, reloaded.AccountLocked)
}

func TestEnableUnknownUserIsNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := auth.NewRepositoryManager(db)

	_, err := repo.Users().Enable(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestDuplicateEmailErrorsStayIndependent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedDefaultRole(t, db)

	repo := auth.NewRepositoryManager(db)

	for _, email := range []string{"breeze@example.com", "ham@example.com"} {
		_, err := repo.Users().Register(ctx, &auth.User{
			FirstName:    "Crew",
			LastName:     "Member",
			Email:        email,
			PasswordHash: "$2a$14$fixture-hash",
		})
		require.NoError(t, err)
	}

	_, err1 := repo.Users().Register(ctx, &auth.User{Email: "breeze@example.com", FirstName: "C", LastName: "M"})
	require.Error(t, err1)
	_, err2 := repo.Users().Register(ctx, &auth.User{Email: "ham@example.com", FirstName: "C", LastName: "M"})
	require.Error(t, err2)

	var rich1, rich2 *goerrors.Error
	require.True(t, goerrors.As(err1, &rich1))
	require.True(t, goerrors.As(err2, &rich2))

	// each conflict carries its own metadata and the sentinel stays clean
	assert.Equal(t, "breeze@example.com", rich1.Metadata["email"])
	assert.Equal(t, "ham@example.com", rich2.Metadata["email"])
	assert.Empty(t, auth.ErrDuplicateEmail.Metadata)
}
