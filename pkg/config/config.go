package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Session       SessionConfig
	OTP           OTPConfig
	AuthRateLimit AuthRateLimitConfig
	Checkout      CheckoutConfig
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
	Env          string `envconfig:"BAZARCHEH_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZARCHEH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZARCHEH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZARCHEH_LOG_WARN_STACK" default:"false"`
	Currency     string `envconfig:"BAZARCHEH_CURRENCY" default:"IRR"`
	AutoMigrate  bool   `envconfig:"BAZARCHEH_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BAZARCHEH_DB_DSN"`
	Driver string `envconfig:"BAZARCHEH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BAZARCHEH_DB_HOST"`
	Port     int    `envconfig:"BAZARCHEH_DB_PORT" default:"5432"`
	User     string `envconfig:"BAZARCHEH_DB_USER"`
	Password string `envconfig:"BAZARCHEH_DB_PASSWORD"`
	Name     string `envconfig:"BAZARCHEH_DB_NAME"`
	SSLMode  string `envconfig:"BAZARCHEH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZARCHEH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZARCHEH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZARCHEH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZARCHEH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZARCHEH_REDIS_URL"`
	Address      string        `envconfig:"BAZARCHEH_REDIS_ADDR"`
	Password     string        `envconfig:"BAZARCHEH_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZARCHEH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZARCHEH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZARCHEH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZARCHEH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZARCHEH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZARCHEH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BAZARCHEH_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BAZARCHEH_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BAZARCHEH_JWT_EXPIRATION_MINUTES" default:"15"`
	RefreshTokenTTLMinutes int    `envconfig:"BAZARCHEH_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAZARCHEH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAZARCHEH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAZARCHEH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAZARCHEH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAZARCHEH_ARGON_KEY_LEN" default:"32"`
}

// SessionConfig governs the anonymous browser session that carries the
// transient cart.
type SessionConfig struct {
	CookieName   string        `envconfig:"BAZARCHEH_SESSION_COOKIE_NAME" default:"sid"`
	TTL          time.Duration `envconfig:"BAZARCHEH_SESSION_TTL" default:"336h"`
	CookieSecure bool          `envconfig:"BAZARCHEH_SESSION_COOKIE_SECURE" default:"false"`
}

type OTPConfig struct {
	TTL            time.Duration `envconfig:"BAZARCHEH_OTP_TTL" default:"2m"`
	ResendInterval time.Duration `envconfig:"BAZARCHEH_OTP_RESEND_INTERVAL" default:"90s"`
	MaxAttempts    int           `envconfig:"BAZARCHEH_OTP_MAX_ATTEMPTS" default:"5"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BAZARCHEH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit    int           `envconfig:"BAZARCHEH_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BAZARCHEH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BAZARCHEH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterPhoneLimit int           `envconfig:"BAZARCHEH_AUTH_RATE_LIMIT_REGISTER_PHONE_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BAZARCHEH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CheckoutConfig struct {
	IdempotencyTTL time.Duration `envconfig:"BAZARCHEH_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"BAZARCHEH_DB_HOST": db.Host,
		"BAZARCHEH_DB_USER": db.User,
		"BAZARCHEH_DB_NAME": db.Name,
	}
	for _, name := range []string{"BAZARCHEH_DB_HOST", "BAZARCHEH_DB_USER", "BAZARCHEH_DB_NAME"} {
		if parts[name] == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either BAZARCHEH_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
