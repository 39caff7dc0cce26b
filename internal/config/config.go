package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	// Empty Addr disables cross-instance fan-out.
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
	Language    string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Auth             AuthConfig
	Telegram         TelegramConfig
	AllowCORSOrigins []string
}

var envReplacer = strings.NewReplacer(".", "_")

// Load reads the configuration and checks what the server needs to start.
func Load() (*AppConfig, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtsecret must be set")
	}
	return cfg, nil
}

// Read reads .env (if present), config.yaml (if present) and COMPLAINTS_*
// environment variables, in increasing precedence. Nothing is validated.
func Read() (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("COMPLAINTS")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "10s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "host=localhost user=user password=password dbname=complaintsdb port=5432 sslmode=disable")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", "24h")
	v.SetDefault("auth.issuer", "complaintdesk")

	v.SetDefault("telegram.bottoken", "")
	v.SetDefault("telegram.adminchatid", 0)
	v.SetDefault("telegram.language", "en")

	v.SetDefault("allowcorsorigins", []string{})
}
