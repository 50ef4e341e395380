package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// activationSubject is the subject line of the activation email
const activationSubject = "Account Activation"

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(4, 72)),
	)
}

// RegisterUserHandler creates the disabled identity, issues the first
// activation token and hands the notification to the mailer queue.
type RegisterUserHandler struct {
	repo         RepositoryManager
	mailer       NotificationEnqueuer
	config       Config
	generateCode CodeGeneratorFunc
	logger       Logger
}

// NewRegisterUserHandler creates a handler with sane defaults
func NewRegisterUserHandler(repo RepositoryManager, mailer NotificationEnqueuer, config Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:         repo,
		mailer:       mailer,
		config:       config,
		generateCode: GenerateActivationCode,
		logger:       defLogger{},
	}
}

// WithLogger overrides the logger used by the handler
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithCodeGenerator overrides the activation code source
func (h *RegisterUserHandler) WithCodeGenerator(generate CodeGeneratorFunc) *RegisterUserHandler {
	if generate != nil {
		h.generateCode = generate
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	user := &User{}
	var code string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Roles().GetByNameTx(ctx, tx, RoleUser); err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				return ErrRoleNotConfigured
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up default role")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Email = event.Email
		user.PasswordHash = hash
		user.Enabled = false
		user.AccountLocked = false
		user.Roles = []string{RoleUser}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			if IsDuplicateEmail(err) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if code, err = h.generateCode(h.config.GetActivationCodeLength()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate activation code")
		}

		if _, err = h.repo.ActivationTokens().IssueTx(ctx, tx, user.ID, code, h.config.GetActivationTokenTTL()); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist activation token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	// registration is committed at this point; delivery failures stay on the
	// mailer's side of the fence and never roll the records back
	h.mailer.Enqueue(Notification{
		To:            user.Email,
		FullName:      user.FullName(),
		Template:      TemplateActivateAccount,
		ActivationURL: h.config.GetActivationURL(),
		Code:          code,
		Subject:       activationSubject,
	})

	return nil
}
