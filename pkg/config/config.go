package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrMissingHMACSecret = errors.New("config: LICENSE.HMAC_SECRET is required")

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr     string `mapstructure:"ADDR"`
		Protocol string `mapstructure:"PROTOCOL"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Server struct {
		Addr           string        `mapstructure:"ADDR"`
		ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout    time.Duration `mapstructure:"IDLE_TIMEOUT"`
		TrustedProxies []string      `mapstructure:"TRUSTED_PROXIES"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	License struct {
		HMACSecret          string        `mapstructure:"HMAC_SECRET"`
		RequestLogRetention time.Duration `mapstructure:"REQUEST_LOG_RETENTION"`
	} `mapstructure:"LICENSE"`
	Heartbeat struct {
		RateLimit             int           `mapstructure:"RATE_LIMIT"`
		RateWindow            time.Duration `mapstructure:"RATE_WINDOW"`
		StrictSeats           bool          `mapstructure:"STRICT_SEATS"`
		DefaultTimeoutMinutes int           `mapstructure:"DEFAULT_TIMEOUT_MINUTES"`
	} `mapstructure:"HEARTBEAT"`
	RateLimiter struct {
		Backend string `mapstructure:"BACKEND"`
	} `mapstructure:"RATE_LIMITER"`
	GeoIP struct {
		Provider string        `mapstructure:"PROVIDER"`
		Addr     string        `mapstructure:"ADDR"`
		APIKey   string        `mapstructure:"API_KEY"`
		Timeout  time.Duration `mapstructure:"TIMEOUT"`
		// outbound lookups per second, 0 disables the budget
		RateLimit float64 `mapstructure:"RATE_LIMIT"`
	} `mapstructure:"GEOIP"`
	SecretAES     string `mapstructure:"SECRET_AES"`
	SnowflakeNode int64  `mapstructure:"SNOWFLAKE_NODE"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "heartbeat")
	v.SetDefault("HTTP_SERVER.ADDR", ":8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("OTEL.PROTOCOL", "grpc")
	v.SetDefault("LICENSE.REQUEST_LOG_RETENTION", 4380*time.Hour)
	v.SetDefault("HEARTBEAT.RATE_LIMIT", 5)
	v.SetDefault("HEARTBEAT.RATE_WINDOW", time.Minute)
	v.SetDefault("HEARTBEAT.DEFAULT_TIMEOUT_MINUTES", 60)
	v.SetDefault("RATE_LIMITER.BACKEND", "redis")
	v.SetDefault("GEOIP.PROVIDER", "proxycheck")
	v.SetDefault("GEOIP.ADDR", "https://proxycheck.io")
	v.SetDefault("GEOIP.TIMEOUT", 2*time.Second)
	v.SetDefault("GEOIP.RATE_LIMIT", 10)
}

// Load reads config.yaml from the working directory (optional) and overlays
// environment variables, e.g. LICENSE_HMAC_SECRET.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{
		"LICENSE.HMAC_SECRET", "SECRET_AES", "SNOWFLAKE_NODE", "PYROSCOPE.ADDR", "OTEL.ADDR",
		"GEOIP.API_KEY", "DATABASE.HOST", "DATABASE.PORT", "DATABASE.DBNAME", "DATABASE.USER",
		"DATABASE.PASSWORD", "DATABASE.AUTO_MIGRATE", "REDIS.PASSWORD", "HEARTBEAT.STRICT_SEATS",
		"TLS.ENABLE", "TLS.CERT_PATH", "TLS.KEY_PATH",
	} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.License.HMACSecret == "" {
		return ErrMissingHMACSecret
	}
	return nil
}

func LoadConfig(p Params) (*Config, error) {
	cfg, err := Load(viper.New())
	if err != nil {
		return nil, err
	}

	if p.Vault != nil {
		// START - Vault
		ctx := context.Background()

		zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
		secret, err := p.Vault.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
		if err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			return nil, err
		}
		zap.L().Info("Success Get Secret")

		get := func(key, fallback string) string {
			if val, ok := secret.Data.Data[key].(string); ok && val != "" {
				return val
			}
			return fallback
		}

		cfg.Database.User = get("postgres_user", cfg.Database.User)
		cfg.Database.Password = get("postgres_password", cfg.Database.Password)
		cfg.Redis.Password = get("redis_password", cfg.Redis.Password)
		cfg.SecretAES = get("secret_aes", cfg.SecretAES)
		cfg.License.HMACSecret = get("license_hmac_secret", cfg.License.HMACSecret)
		cfg.GeoIP.APIKey = get("proxycheck_api_key", cfg.GeoIP.APIKey)
		// END - Vault
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
