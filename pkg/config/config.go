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
	OTP           OTPConfig
	Advisor       AdvisorConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"TOUCHTRIAL_APP_ENV" required:"true"`
	Port         string `envconfig:"TOUCHTRIAL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TOUCHTRIAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOUCHTRIAL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TOUCHTRIAL_DB_DSN"`
	Driver string `envconfig:"TOUCHTRIAL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOUCHTRIAL_DB_HOST"`
	LegacyPort     int    `envconfig:"TOUCHTRIAL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOUCHTRIAL_DB_USER"`
	LegacyPassword string `envconfig:"TOUCHTRIAL_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOUCHTRIAL_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOUCHTRIAL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOUCHTRIAL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOUCHTRIAL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOUCHTRIAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOUCHTRIAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOUCHTRIAL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TOUCHTRIAL_REDIS_ADDR"`
	Password     string        `envconfig:"TOUCHTRIAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOUCHTRIAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOUCHTRIAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOUCHTRIAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOUCHTRIAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOUCHTRIAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOUCHTRIAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TOUCHTRIAL_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TOUCHTRIAL_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TOUCHTRIAL_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TOUCHTRIAL_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TOUCHTRIAL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TOUCHTRIAL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TOUCHTRIAL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TOUCHTRIAL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TOUCHTRIAL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TOUCHTRIAL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TOUCHTRIAL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TOUCHTRIAL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TOUCHTRIAL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TOUCHTRIAL_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TOUCHTRIAL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type OTPConfig struct {
	CodeTTL        time.Duration `envconfig:"TOUCHTRIAL_OTP_CODE_TTL" default:"5m"`
	MaxAttempts    int           `envconfig:"TOUCHTRIAL_OTP_MAX_ATTEMPTS" default:"5"`
	SendWindow     time.Duration `envconfig:"TOUCHTRIAL_OTP_SEND_WINDOW" default:"10m"`
	SendLimit      int           `envconfig:"TOUCHTRIAL_OTP_SEND_LIMIT" default:"3"`
	SendIPLimit    int           `envconfig:"TOUCHTRIAL_OTP_SEND_IP_LIMIT" default:"10"`
	DeliveryMethod string        `envconfig:"TOUCHTRIAL_OTP_DELIVERY_METHOD" default:"log"`
}

type AdvisorConfig struct {
	BaseURL        string        `envconfig:"TOUCHTRIAL_ADVISOR_BASE_URL" default:"https://api.openai.com/v1/chat/completions"`
	APIKey         string        `envconfig:"TOUCHTRIAL_ADVISOR_API_KEY"`
	Model          string        `envconfig:"TOUCHTRIAL_ADVISOR_MODEL" default:"gpt-4o-mini"`
	RequestTimeout time.Duration `envconfig:"TOUCHTRIAL_ADVISOR_REQUEST_TIMEOUT" default:"120s"`
	HistoryLimit   int           `envconfig:"TOUCHTRIAL_ADVISOR_HISTORY_LIMIT" default:"20"`
	SessionTTL     time.Duration `envconfig:"TOUCHTRIAL_ADVISOR_SESSION_TTL" default:"24h"`
	InFlightTTL    time.Duration `envconfig:"TOUCHTRIAL_ADVISOR_IN_FLIGHT_TTL" default:"2m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TOUCHTRIAL_AUTO_MIGRATE" default:"false"`
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
