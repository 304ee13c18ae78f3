package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/client"
	"github.com/miyog/miyog-engine/internal/config"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/service/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Setting keys. Each is also a persistent flag and a MIYOG_ environment
// variable (MIYOG_API_URL, MIYOG_AUTH_JWT_SECRET, ...).
const (
	keyAPIURL = "api-url"
	keyToken  = "token"
	keyUser   = "user"
	keySecret = "secret"
	keyJSON   = "json"
	keyDebug  = "debug"

	defaultAPIURL = "http://localhost:8000"
)

// envKeys maps setting keys onto environment variables shared with the server.
var envKeys = map[string]string{
	keyAPIURL: "MIYOG_API_URL",
	keyToken:  "MIYOG_TOKEN",
	keyUser:   "MIYOG_USER",
	keySecret: "MIYOG_AUTH_JWT_SECRET",
}

var errNoCredentials = errors.New("no credentials: pass --token, or --user together with --secret")

type commandContext struct {
	configFlag *string
	v          *viper.Viper
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, v: viper.New()}
}

// load merges flags, environment and the optional config file.
func (c *commandContext) load(cmd *cobra.Command) error {
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	for key, env := range envKeys {
		if err := c.v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	if path := strings.TrimSpace(*c.configFlag); path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	level := "warn"
	if c.v.GetBool(keyDebug) {
		level = "debug"
	}
	l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: level}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.logger = l
	return nil
}

func (c *commandContext) jsonOutput() bool { return c.v.GetBool(keyJSON) }

// mintToken signs a development token for the configured user.
func (c *commandContext) mintToken(ctx context.Context, lifetime time.Duration) (string, error) {
	rawUser := strings.TrimSpace(c.v.GetString(keyUser))
	secret := c.v.GetString(keySecret)
	if rawUser == "" || secret == "" {
		return "", errNoCredentials
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return "", fmt.Errorf("invalid user id %q: %w", rawUser, err)
	}
	svc, err := auth.NewJWTService(config.AuthConfig{JWTSecret: secret})
	if err != nil {
		return "", err
	}
	return svc.GenerateToken(ctx, userID, "", lifetime)
}

// tokenSource prefers an explicit token and otherwise mints one per run.
func (c *commandContext) tokenSource() client.TokenSource {
	return client.TokenFunc(func(ctx context.Context) (string, error) {
		if token := strings.TrimSpace(c.v.GetString(keyToken)); token != "" {
			return token, nil
		}
		return c.mintToken(ctx, time.Hour)
	})
}

func (c *commandContext) client() (*client.Client, error) {
	return client.New(c.v.GetString(keyAPIURL), c.tokenSource(), client.WithLogger(c.logger))
}

// withClient runs fn against a configured API client.
func (c *commandContext) withClient(fn func(*client.Client) error) error {
	api, err := c.client()
	if err != nil {
		return err
	}
	return fn(api)
}

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
