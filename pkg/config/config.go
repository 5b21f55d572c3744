package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "AIMAGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "AIMAGE_DB_DSN"
	EnvDBHost = "AIMAGE_DB_HOST"
	EnvDBUser = "AIMAGE_DB_USER"
	EnvDBName = "AIMAGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Signup        SignupConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Provider      ProviderConfig
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
	Env          string `envconfig:"AIMAGE_APP_ENV" required:"true"`
	Port         string `envconfig:"AIMAGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AIMAGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AIMAGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AIMAGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AIMAGE_DB_DSN"`
	Driver string `envconfig:"AIMAGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AIMAGE_DB_HOST"`
	LegacyPort     int    `envconfig:"AIMAGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AIMAGE_DB_USER"`
	LegacyPassword string `envconfig:"AIMAGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"AIMAGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"AIMAGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AIMAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AIMAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AIMAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AIMAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AIMAGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AIMAGE_REDIS_ADDR"`
	Password     string        `envconfig:"AIMAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AIMAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AIMAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AIMAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AIMAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AIMAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AIMAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AIMAGE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AIMAGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AIMAGE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"AIMAGE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AIMAGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AIMAGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AIMAGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AIMAGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AIMAGE_ARGON_KEY_LEN" default:"32"`
}

// SignupConfig controls the welcome grant applied to new accounts.
type SignupConfig struct {
	Credits int `envconfig:"AIMAGE_SIGNUP_CREDITS" default:"10"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AIMAGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AIMAGE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AIMAGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AIMAGE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AIMAGE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AIMAGE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AIMAGE_AUTO_MIGRATE" default:"false"`
	// SimulatePayments credits purchases without calling a payment gateway.
	// No gateway is integrated yet, so this defaults to on.
	SimulatePayments bool `envconfig:"AIMAGE_SIMULATE_PAYMENTS" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AIMAGE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"AIMAGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AIMAGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	GenerationTopic        string `envconfig:"AIMAGE_PUBSUB_GENERATION_TOPIC" required:"true"`
	GenerationSubscription string `envconfig:"AIMAGE_PUBSUB_GENERATION_SUBSCRIPTION" required:"true"`
}

// ProviderConfig configures the upstream video-generation API.
type ProviderConfig struct {
	BaseURL      string        `envconfig:"AIMAGE_PROVIDER_BASE_URL" required:"true"`
	APIKey       string        `envconfig:"AIMAGE_PROVIDER_API_KEY" required:"true"`
	PollInterval time.Duration `envconfig:"AIMAGE_PROVIDER_POLL_INTERVAL" default:"5s"`
	PollTimeout  time.Duration `envconfig:"AIMAGE_PROVIDER_POLL_TIMEOUT" default:"5m"`
	HTTPTimeout  time.Duration `envconfig:"AIMAGE_PROVIDER_HTTP_TIMEOUT" default:"30s"`
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
