package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	iauth "github.com/nguyenvh/custodesk/internal/auth"
	"github.com/nguyenvh/custodesk/internal/database"
	"github.com/nguyenvh/custodesk/internal/push"
	"github.com/nguyenvh/custodesk/pkg/mail"
)

// Config represents the runtime configuration for the Custodesk backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Email     EmailConfig     `mapstructure:"email"`
	Push      PushConfig      `mapstructure:"push"`
	Reminders RemindersConfig `mapstructure:"reminders"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT   JWTSettings       `mapstructure:"jwt"`
	Local LocalAuthSettings `mapstructure:"local"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// LocalAuthSettings defines controls for the local auth provider.
type LocalAuthSettings struct {
	LockoutThreshold int `mapstructure:"lockout_threshold"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PushConfig carries the Web Push VAPID credentials.
type PushConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string `mapstructure:"subscriber"`
	TTL             int    `mapstructure:"ttl"`
}

// RemindersConfig controls the daily due-reminder job.
type RemindersConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CUSTODESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/custodesk.sqlite")

	v.SetDefault("auth.jwt.issuer", "custodesk")
	v.SetDefault("auth.jwt.access_token_ttl", "8h")
	v.SetDefault("auth.local.lockout_threshold", 5)

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("push.enabled", false)
	v.SetDefault("push.ttl", 60)

	// 08:00 every day, interpreted in the bank's local zone (UTC+7).
	v.SetDefault("reminders.schedule", "0 8 * * *")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// DatabaseSettings converts the config into the database package's Config.
func (c *Config) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: c.Database.Driver,
		Path:   c.Database.Path,
		DSN:    c.Database.DSN,
	}

	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "postgres", "postgresql":
		cfg.Host = c.Database.Postgres.Host
		cfg.Port = c.Database.Postgres.Port
		cfg.Name = c.Database.Postgres.Database
		cfg.User = c.Database.Postgres.Username
		cfg.Password = c.Database.Postgres.Password
	case "mysql", "mariadb":
		cfg.Host = c.Database.MySQL.Host
		cfg.Port = c.Database.MySQL.Port
		cfg.Name = c.Database.MySQL.Database
		cfg.User = c.Database.MySQL.Username
		cfg.Password = c.Database.MySQL.Password
	}

	return cfg
}

// SMTPSettings converts the email section into the mailer's settings.
func (c *Config) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.Email.SMTP.Enabled,
		Host:     c.Email.SMTP.Host,
		Port:     c.Email.SMTP.Port,
		Username: c.Email.SMTP.Username,
		Password: c.Email.SMTP.Password,
		From:     c.Email.SMTP.From,
		UseTLS:   c.Email.SMTP.UseTLS,
		Timeout:  c.Email.SMTP.Timeout,
	}
}

// PushSettings converts the push section into the gateway's config.
func (c *Config) PushSettings() push.Config {
	return push.Config{
		Enabled:         c.Push.Enabled,
		VAPIDPublicKey:  c.Push.VAPIDPublicKey,
		VAPIDPrivateKey: c.Push.VAPIDPrivateKey,
		Subscriber:      c.Push.Subscriber,
		TTL:             c.Push.TTL,
	}
}

// JWTConfig converts the auth section into the JWT service config.
func (c *Config) JWTConfig() iauth.JWTConfig {
	return iauth.JWTConfig{
		Secret:         c.Auth.JWT.Secret,
		Issuer:         c.Auth.JWT.Issuer,
		AccessTokenTTL: c.Auth.JWT.TTL,
	}
}

// LocalConfig converts the auth section into the local provider config.
func (c *Config) LocalConfig() iauth.LocalConfig {
	return iauth.LocalConfig{LockoutThreshold: c.Auth.Local.LockoutThreshold}
}
