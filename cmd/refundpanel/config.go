package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/refundpanel/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultPanelURL     = "/"
	defaultSessionTTL   = 7 * 24 * time.Hour
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the panel will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Signs browser cookies and OAuth state
	SecretKey string

	// Environment
	Environment string

	// Discord application the admins log in with
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	// Admin is a member of this guild having this role
	DiscordGuildID     string
	DiscordAdminRoleID string

	// Redis keeps sessions if set, otherwise they live in process memory
	RedisAddr     string
	RedisPassword string

	// Bcrypt hash of the key game server sends; game API is off if empty
	GameKeyHash string

	// Comma separated origins allowed to call API from browser
	CORSOrigins string

	// Where admin lands after login
	PanelURL string

	SessionTTL time.Duration

	// Send cookies over https only
	SecureCookie bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		Environment: defaultEnvironment,
		PanelURL:    defaultPanelURL,
		SessionTTL:  defaultSessionTTL,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			switch strings.ToLower(value) {
			case "":
			case "1", "true", "yes":
				*o = true
			case "0", "false", "no":
				*o = false
			default:
				return fmt.Errorf("not a boolean %q", value)
			}
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":           setString(&c.ListenAddr),
		"DATABASE_URI":          setString(&c.DatabaseDSN),
		"SECRET_KEY":            setString(&c.SecretKey),
		"LOG_LEVEL":             setString(&c.LogLevel),
		"ENVIRONMENT":           setString(&c.Environment),
		"DISCORD_CLIENT_ID":     setString(&c.DiscordClientID),
		"DISCORD_CLIENT_SECRET": setString(&c.DiscordClientSecret),
		"DISCORD_REDIRECT_URI":  setString(&c.DiscordRedirectURI),
		"DISCORD_GUILD_ID":      setString(&c.DiscordGuildID),
		"DISCORD_ADMIN_ROLE_ID": setString(&c.DiscordAdminRoleID),
		"REDIS_ADDRESS":         setString(&c.RedisAddr),
		"REDIS_PASSWORD":        setString(&c.RedisPassword),
		"GAME_KEY_HASH":         setString(&c.GameKeyHash),
		"CORS_ORIGINS":          setString(&c.CORSOrigins),
		"PANEL_URL":             setString(&c.PanelURL),
		"SESSION_TTL":           setDuration(&c.SessionTTL),
		"SECURE_COOKIE":         setBool(&c.SecureCookie),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("refundpanel", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.DiscordClientID, "discord-client-id", c.DiscordClientID, "Discord application client id")
	fs.StringVar(&c.DiscordClientSecret, "discord-client-secret", c.DiscordClientSecret, "Discord application client secret")
	fs.StringVar(&c.DiscordRedirectURI, "discord-redirect-uri", c.DiscordRedirectURI, "OAuth callback url registered in Discord")
	fs.StringVar(&c.DiscordGuildID, "discord-guild", c.DiscordGuildID, "Guild admins have to be members of")
	fs.StringVar(&c.DiscordAdminRoleID, "discord-admin-role", c.DiscordAdminRoleID, "Guild role that grants admin access")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address to keep sessions in")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.StringVar(&c.GameKeyHash, "game-key-hash", c.GameKeyHash, "Bcrypt hash of the game server key")
	fs.StringVar(&c.CORSOrigins, "cors-origins", c.CORSOrigins, "Comma separated origins of the panel frontend")
	fs.StringVar(&c.PanelURL, "panel-url", c.PanelURL, "Where admin lands after login")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "Admin session lifetime")
	fs.BoolVar(&c.SecureCookie, "secure-cookie", c.SecureCookie, "Send cookies over https only")

	return fs.Parse(args)
}

// Validate reports every required setting that is missing
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"database", c.DatabaseDSN},
		{"secret-key", c.SecretKey},
		{"discord-client-id", c.DiscordClientID},
		{"discord-client-secret", c.DiscordClientSecret},
		{"discord-redirect-uri", c.DiscordRedirectURI},
		{"discord-guild", c.DiscordGuildID},
		{"discord-admin-role", c.DiscordAdminRoleID},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session-ttl must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) Origins() []string {
	var origins []string
	for o := range strings.SplitSeq(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
