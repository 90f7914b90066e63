package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort   string
	AppEnv    string
	AppOrigin string // public site origin; push links default under it

	APIBaseURL      string // external trading API
	KYCAPIPath      string // prefix of the KYC routes on the external API
	SocketURL       string // realtime server base URL
	UpstreamTimeout time.Duration
	VAPIDPublicKey  string

	JWTPublicKeyPath string
	AllowedOrigins   []string // CORS allowed origins
	RateLimitRPS     float64  // per-IP limit on mutating routes
	RateLimitBurst   int
	TrustedProxies   []string // CIDRs whose forwarding headers are believed

	VisitStore string // "memory" | "dynamo" | "redis"
	VisitTTL   time.Duration

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CaptureMode        string // "auto" | "manual"
	RealtimeQueueSize  int
	RealtimeMinBackoff time.Duration
	RealtimeMaxBackoff time.Duration
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Visits string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:         getEnv("APP_PORT", "3000"),
		AppEnv:          getEnv("APP_ENV", "development"),
		AppOrigin:       strings.TrimSuffix(getEnv("APP_ORIGIN", "https://www.orextrade.live"), "/"),
		APIBaseURL:      strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:8000/api/v1"), "/"),
		KYCAPIPath:      getEnv("KYC_API_PATH", "/kyc"),
		SocketURL:       getEnv("SOCKET_URL", "http://localhost:8000"),
		UpstreamTimeout: time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 10),
		TrustedProxies:   getEnvList("TRUSTED_PROXIES"),

		VisitStore: getEnv("VISIT_STORE", "memory"),
		VisitTTL:   time.Duration(getEnvInt("VISIT_TTL_MINUTES", 60)) * time.Minute,

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Visits: getEnv("DYNAMO_TABLE_VISITS", "kyc_visits"),
		},

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CaptureMode:        getEnv("CAPTURE_MODE", "manual"),
		RealtimeQueueSize:  getEnvInt("REALTIME_QUEUE_SIZE", 32),
		RealtimeMinBackoff: time.Duration(getEnvInt("REALTIME_MIN_BACKOFF_MS", 800)) * time.Millisecond,
		RealtimeMaxBackoff: time.Duration(getEnvInt("REALTIME_MAX_BACKOFF_MS", 5000)) * time.Millisecond,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
