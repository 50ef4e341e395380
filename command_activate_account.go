package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	Token string `json:"token"`
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

// Validate will run validation rules
func (e ActivateAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required),
	)
}

// ActivateAccountHandler drives the activation token state machine: a live
// token enables the user and is consumed in the same transaction, an
// expired token gets replaced and re-sent, a consumed token fails.
type ActivateAccountHandler struct {
	repo         RepositoryManager
	mailer       NotificationEnqueuer
	config       Config
	generateCode CodeGeneratorFunc
	logger       Logger
	now          func() time.Time
}

// NewActivateAccountHandler creates a handler with sane defaults
func NewActivateAccountHandler(repo RepositoryManager, mailer NotificationEnqueuer, config Config) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:         repo,
		mailer:       mailer,
		config:       config,
		generateCode: GenerateActivationCode,
		logger:       defLogger{},
		now:          time.Now,
	}
}

// WithLogger overrides the logger used by the handler
func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithCodeGenerator overrides the activation code source
func (h *ActivateAccountHandler) WithCodeGenerator(generate CodeGeneratorFunc) *ActivateAccountHandler {
	if generate != nil {
		h.generateCode = generate
	}
	return h
}

// WithClock overrides the clock used for expiry checks
func (h *ActivateAccountHandler) WithClock(now func() time.Time) *ActivateAccountHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid activation payload")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// set when the presented token turned out to be expired: the replacement
	// token has to commit even though this call ultimately fails
	var reissued *Notification

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.repo.ActivationTokens().GetByTokenTx(ctx, tx, event.Token)
		if err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				return ErrActivationTokenNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up activation token")
		}

		if token.IsConsumed() {
			return ErrActivationTokenUsed
		}

		now := h.now()

		if token.IsExpired(now) {
			user, err := h.repo.Users().GetByIDTx(ctx, tx, token.UserID)
			if err != nil {
				if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
					return ErrUserNotFound
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for token re-issue")
			}

			code, err := h.generateCode(h.config.GetActivationCodeLength())
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate replacement activation code")
			}

			if _, err := h.repo.ActivationTokens().IssueTx(ctx, tx, user.ID, code, h.config.GetActivationTokenTTL()); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist replacement activation token")
			}

			reissued = &Notification{
				To:            user.Email,
				FullName:      user.FullName(),
				Template:      TemplateActivateAccount,
				ActivationURL: h.config.GetActivationURL(),
				Code:          code,
				Subject:       activationSubject,
			}

			return nil
		}

		user, err := h.repo.Users().GetByIDTx(ctx, tx, token.UserID)
		if err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for activation")
		}

		// enabling the user and consuming the token commit together or not
		// at all
		if _, err := h.repo.Users().EnableTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enable user account")
		}

		if err := h.repo.ActivationTokens().MarkValidatedTx(ctx, tx, token.ID, now); err != nil {
			if IsActivationTokenUsed(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume activation token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	if reissued != nil {
		h.mailer.Enqueue(*reissued)
		return ErrActivationTokenExpired
	}

	return nil
}
