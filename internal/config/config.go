package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Supabase   SupabaseConfig   `yaml:"supabase"`
	Database   DatabaseConfig   `yaml:"database"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Library    LibraryConfig    `yaml:"library"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	CORS       CORSConfig       `yaml:"cors"`
}

// CORSConfig holds CORS settings. AllowedOrigins lists the front ends trusted
// to use the local session; empty means same-origin only. "*" opens read
// access without credentials and never grants the session.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// SaveRateLimit caps prompt saves per caller per minute. 0 disables it.
	SaveRateLimit int `yaml:"save_rate_limit" env:"SERVER_SAVE_RATE_LIMIT" env-default:"30"`
}

// SupabaseConfig holds the auth and data API settings of the backend project.
type SupabaseConfig struct {
	URL     string `yaml:"url"      env:"SUPABASE_URL"      env-required:"true"`
	AnonKey string `yaml:"anon_key" env:"SUPABASE_ANON_KEY" env-required:"true"`
	// JWTSecret enables signature verification of access tokens when set.
	JWTSecret     string        `yaml:"jwt_secret"     env:"SUPABASE_JWT_SECRET"`
	OAuthProvider string        `yaml:"oauth_provider" env:"SUPABASE_OAUTH_PROVIDER" env-default:"google"`
	RedirectURL   string        `yaml:"redirect_url"   env:"SUPABASE_REDIRECT_URL"`
	Timeout       time.Duration `yaml:"timeout"        env:"SUPABASE_TIMEOUT"        env-default:"15s"`
	RefreshLeeway time.Duration `yaml:"refresh_leeway" env:"SUPABASE_REFRESH_LEEWAY" env-default:"60s"`
}

// Issuer is the token issuer of the project's auth API.
func (c SupabaseConfig) Issuer() string {
	return c.URL + "/auth/v1"
}

// Database drivers.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects the prompt storage backend. DSN and the pool
// settings apply to the postgres driver only.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"             env:"DATABASE_DRIVER"             env-default:"rest"`
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// SummarizerConfig holds the summarization endpoint settings.
type SummarizerConfig struct {
	BaseURL string        `yaml:"base_url" env:"SUMMARIZER_BASE_URL,RENDER_URL" env-default:"http://localhost:5000"`
	Timeout time.Duration `yaml:"timeout"  env:"SUMMARIZER_TIMEOUT"             env-default:"30s"`
}

// LibraryConfig holds timeline presentation settings.
type LibraryConfig struct {
	Timezone    string `yaml:"timezone"     env:"LIBRARY_TIMEZONE"     env-default:"Local"`
	RecentLimit int    `yaml:"recent_limit" env:"LIBRARY_RECENT_LIMIT" env-default:"10"`

	// Location is resolved from Timezone during validation.
	Location *time.Location `yaml:"-" env:"-"`
}

// Storage backends for locally persisted state.
const (
	StorageAuto    = "auto"
	StorageKeyring = "keyring"
	StorageFile    = "file"
)

// StorageConfig holds settings of the local key/value store that keeps the
// auth session and the cached identity.
type StorageConfig struct {
	Backend        string `yaml:"backend"         env:"STORAGE_BACKEND"         env-default:"auto"`
	KeyringService string `yaml:"keyring_service" env:"STORAGE_KEYRING_SERVICE" env-default:"promptly"`
	// Dir is used by the file backend. Empty means ~/.promptly.
	Dir string `yaml:"dir" env:"STORAGE_DIR"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
