package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Omise         OmiseConfig
	Poller        PollerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MEMBERPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"MEMBERPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEMBERPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEMBERPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MEMBERPAY_DB_DSN"`
	Driver string `envconfig:"MEMBERPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEMBERPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"MEMBERPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEMBERPAY_DB_USER"`
	LegacyPassword string `envconfig:"MEMBERPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEMBERPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEMBERPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEMBERPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEMBERPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEMBERPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEMBERPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEMBERPAY_REDIS_URL"`
	Address      string        `envconfig:"MEMBERPAY_REDIS_ADDRESS"`
	Password     string        `envconfig:"MEMBERPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEMBERPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEMBERPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEMBERPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEMBERPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEMBERPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEMBERPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MEMBERPAY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MEMBERPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MEMBERPAY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MEMBERPAY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MEMBERPAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MEMBERPAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MEMBERPAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MEMBERPAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MEMBERPAY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MEMBERPAY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MEMBERPAY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MEMBERPAY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MEMBERPAY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MEMBERPAY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MEMBERPAY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MEMBERPAY_AUTO_MIGRATE" default:"false"`
}

type OmiseConfig struct {
	PublicKey string `envconfig:"MEMBERPAY_OMISE_PUBLIC_KEY" required:"true"`
	SecretKey string `envconfig:"MEMBERPAY_OMISE_SECRET_KEY" required:"true"`
}

type PollerConfig struct {
	Interval           time.Duration `envconfig:"MEMBERPAY_POLL_INTERVAL" default:"2s"`
	DefaultMaxAttempts int           `envconfig:"MEMBERPAY_POLL_DEFAULT_MAX_ATTEMPTS" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
