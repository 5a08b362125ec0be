package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	SecretKey   string `mapstructure:"SECRET_KEY"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	GinMode     string `mapstructure:"GIN_MODE"`

	// SiteURL is the public base URL used for absolute links in feeds.
	SiteURL string `mapstructure:"SITE_URL"`

	// First-run provisioning; see services.UserService.ProvisionAdmin.
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	SessionMaxAge   time.Duration `mapstructure:"SESSION_MAX_AGE"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var (
	ErrMissingSecretKey   = errors.New("SECRET_KEY is not set")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")
)

var keys = []string{
	"PORT", "SECRET_KEY", "DATABASE_URL", "GIN_MODE", "SITE_URL",
	"ADMIN_EMAIL", "ADMIN_USERNAME", "ADMIN_PASSWORD",
	"SESSION_MAX_AGE", "SHUTDOWN_TIMEOUT",
}

// Load reads an optional .env file and then the process environment.
// Environment variables win over values from the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file found, reading config from environment")
	}

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("SITE_URL", "http://localhost:8080")
	v.SetDefault("ADMIN_USERNAME", "Admin")
	v.SetDefault("SESSION_MAX_AGE", 7*24*time.Hour)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.AutomaticEnv()
	// AutomaticEnv alone does not let Unmarshal see keys without a default
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.AdminEmail = strings.TrimSpace(cfg.AdminEmail)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// HasAdminCredential reports whether the operator supplied a first-run admin credential.
func (c *Config) HasAdminCredential() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}
