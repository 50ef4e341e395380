package auth

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivationTokens persists activation codes. Records are append only
// history; consumption only ever sets validated_at.
type ActivationTokens interface {
	Issue(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) (*ActivationToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code string, ttl time.Duration) (*ActivationToken, error)

	GetByToken(ctx context.Context, token string) (*ActivationToken, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*ActivationToken, error)

	MarkValidated(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkValidatedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
}

type activationTokens struct {
	repository.Repository[*ActivationToken]
	db  *bun.DB
	now func() time.Time
}

var _ ActivationTokens = (*activationTokens)(nil)

// ActivationTokensOption customizes the repository
type ActivationTokensOption func(*activationTokens)

// WithActivationTokensClock overrides the issuance clock
func WithActivationTokensClock(now func() time.Time) ActivationTokensOption {
	return func(a *activationTokens) {
		if now != nil {
			a.now = now
		}
	}
}

func NewActivationTokensRepository(db *bun.DB, opts ...ActivationTokensOption) ActivationTokens {
	repo := repository.NewRepository[*ActivationToken](db, repository.ModelHandlers[*ActivationToken]{
		NewRecord: func() *ActivationToken { return &ActivationToken{} },
		GetID: func(t *ActivationToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *ActivationToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	tokens := &activationTokens{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(tokens)
		}
	}

	return tokens
}

func (a *activationTokens) Issue(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) (*ActivationToken, error) {
	return a.IssueTx(ctx, a.db, userID, code, ttl)
}

// IssueTx appends a fresh token record with expires_at = created_at + ttl.
func (a *activationTokens) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code string, ttl time.Duration) (*ActivationToken, error) {
	now := a.now()

	record := &ActivationToken{
		ID:        uuid.New(),
		Token:     code,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *activationTokens) GetByToken(ctx context.Context, token string) (*ActivationToken, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

// GetByTokenTx resolves a code to its most recent record. Codes are not
// globally unique, so on a collision the newest issuance wins.
func (a *activationTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*ActivationToken, error) {
	record := &ActivationToken{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || err == sql.ErrNoRows {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token": token,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *activationTokens) MarkValidated(ctx context.Context, id uuid.UUID, at time.Time) error {
	return a.MarkValidatedTx(ctx, a.db, id, at)
}

// MarkValidatedTx consumes the token. The validated_at IS NULL guard makes
// concurrent consumption lose rather than double-commit.
func (a *activationTokens) MarkValidatedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*ActivationToken)(nil)).
		Set("validated_at = ?", at).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.validated_at IS NULL").
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark activation token as validated")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read activation token update result")
	}

	if rows == 0 {
		return ErrActivationTokenUsed.Clone().WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return nil
}
