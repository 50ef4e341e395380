package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sethvargo/go-envconfig"
)

// BaseConfig is an environment backed Config implementation. Library
// consumers with their own configuration layer can ignore it and satisfy
// the Config interface directly.
type BaseConfig struct {
	SigningKey           string        `env:"AUTH_SIGNING_KEY, required"`
	Issuer               string        `env:"AUTH_ISSUER"`
	Audience             []string      `env:"AUTH_AUDIENCE"`
	TokenExpiration      int           `env:"AUTH_TOKEN_EXPIRATION, default=24"`
	ActivationURL        string        `env:"AUTH_ACTIVATION_URL, required"`
	ActivationCodeLength int           `env:"AUTH_ACTIVATION_CODE_LENGTH, default=6"`
	ActivationTokenTTL   time.Duration `env:"AUTH_ACTIVATION_TOKEN_TTL, default=15m"`
}

// LoadConfig reads configuration from the process environment
func LoadConfig(ctx context.Context) (*BaseConfig, error) {
	cfg := &BaseConfig{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load auth configuration from environment")
	}

	// envconfig's required only rejects unset variables, not empty ones
	if cfg.SigningKey == "" {
		return nil, goerrors.New("AUTH_SIGNING_KEY must not be empty", goerrors.CategoryValidation)
	}

	if cfg.ActivationURL == "" {
		return nil, goerrors.New("AUTH_ACTIVATION_URL must not be empty", goerrors.CategoryValidation)
	}

	return cfg, nil
}

func (c *BaseConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *BaseConfig) GetIssuer() string {
	return c.Issuer
}

func (c *BaseConfig) GetAudience() []string {
	return c.Audience
}

func (c *BaseConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

func (c *BaseConfig) GetActivationURL() string {
	return c.ActivationURL
}

func (c *BaseConfig) GetActivationCodeLength() int {
	return c.ActivationCodeLength
}

func (c *BaseConfig) GetActivationTokenTTL() time.Duration {
	return c.ActivationTokenTTL
}

var _ Config = (*BaseConfig)(nil)
