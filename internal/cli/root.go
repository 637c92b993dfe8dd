package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"github.com/julianstephens/habitloop/internal/auth"
	"github.com/julianstephens/habitloop/internal/config"
	"github.com/julianstephens/habitloop/internal/extract"
	"github.com/julianstephens/habitloop/internal/habits"
	"github.com/julianstephens/habitloop/internal/keyring"
	"github.com/julianstephens/habitloop/internal/storage"
	"github.com/julianstephens/habitloop/internal/storage/postgres"
	"github.com/julianstephens/habitloop/internal/storage/sqlite"
	"github.com/julianstephens/habitloop/internal/utils"
)

// Context is handed to every command's Run method.
type Context struct {
	Config *config.Config
	Store  storage.Provider
	// User is the identity local commands act as.
	User string
	Out  io.Writer

	// Extractor overrides the configured Gemini client when set.
	Extractor extract.Extractor
}

func (c *Context) Stdout() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

// IsPostgres reports whether dsn selects the Postgres backend.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// ResolveDSN prefers a DSN stored in the keyring over the built-in default
// path. An explicitly configured DSN always wins.
func ResolveDSN(configured string) string {
	if configured != config.DefaultDSN() {
		return configured
	}
	if stored := keyring.Lookup(keyring.DatabaseDSN, ""); stored != "" {
		return stored
	}
	return configured
}

// OpenStore picks the backend from the DSN. Postgres DSNs must not embed a
// password unless they came from the keyring.
func OpenStore(dsn string, fromKeyring bool) (storage.Provider, error) {
	if IsPostgres(dsn) || strings.Contains(dsn, "host=") {
		if _, err := postgres.ValidateConnString(dsn); err != nil {
			if !(fromKeyring && errors.Is(err, postgres.ErrEmbeddedCredentials)) {
				return nil, fmt.Errorf("%w (store the DSN with 'habitloop secret set database-dsn' or use .pgpass)", err)
			}
		}
		return postgres.New(dsn), nil
	}

	path, err := utils.ExpandPath(dsn)
	if err != nil {
		return nil, err
	}
	return sqlite.NewStore(path), nil
}

// CurrentUser falls back to the OS account name when no user was given.
func CurrentUser(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("no --user given and the OS user could not be determined: %w", err)
	}
	return u.Username, nil
}

// NewExtractor builds the configured extraction client. The API key comes
// from config or the keyring.
func (c *Context) NewExtractor() extract.Extractor {
	if c.Extractor != nil {
		return c.Extractor
	}
	cfg := c.Config.Extract
	return extract.NewGeminiClient(
		keyring.Lookup(keyring.ExtractAPIKey, cfg.APIKey),
		extract.WithModel(cfg.Model),
		extract.WithBaseURL(cfg.BaseURL),
		extract.WithTimeout(cfg.Timeout),
	)
}

// NewService builds the habit service over the loaded store.
func (c *Context) NewService(opts ...habits.Option) (*habits.Service, error) {
	engine, err := c.Config.Engine()
	if err != nil {
		return nil, err
	}
	return habits.NewService(c.Store, c.NewExtractor(), engine, opts...), nil
}

// NewTokens builds the token issuer. The secret comes from config or the
// keyring.
func (c *Context) NewTokens() (*auth.Tokens, error) {
	cfg := c.Config.Auth
	secret := keyring.Lookup(keyring.JWTSecret, cfg.Secret)
	tokens, err := auth.NewTokens(secret, cfg.Issuer, cfg.TokenTTL)
	if errors.Is(err, auth.ErrMissingSecret) {
		return nil, fmt.Errorf("%w: set auth.secret, HABITLOOP_AUTH_SECRET or 'habitloop secret set jwt-secret'", err)
	}
	return tokens, err
}
