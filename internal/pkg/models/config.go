package models

// Config represents application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	NewRelic NewRelicConfig
	Logger   LoggerConfig
	Paystack PaystackConfig
	Payment  PaymentConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// Enabled reports whether a Redis host was configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// NATSConfig contains NATS connection configuration
type NATSConfig struct {
	URL string
}

// NewRelicConfig contains New Relic agent configuration
type NewRelicConfig struct {
	LicenseKey   string
	AppName      string
	Enabled      bool
	LogsEnabled  bool
	LogsEndpoint string
	LogsAPIKey   string
	ForwardLogs  bool
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level      string
	FilePath   string
	MaxSize    int64
	MaxAge     int
	MaxBackups int
	Compress   bool
	Type       string
}

// PaystackConfig contains payment gateway configuration
type PaystackConfig struct {
	BaseURL            string
	SecretKey          string // API key, also the webhook HMAC secret
	DefaultCallbackURL string
}

// LockedCallBudget is the number of bounded outbound calls a webhook can make
// while holding a reference lock: find, status update, payout, snapshot and
// compensation, plus one for lock acquisition.
const LockedCallBudget = 6

// PaymentConfig contains payment flow configuration
type PaymentConfig struct {
	CountryConfigPath      string
	OutboundTimeoutSeconds int
	LockTTLSeconds         int
	WebhookMaxBodyBytes    int64
}
