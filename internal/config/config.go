package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string

	// Server
	ApiPort        string
	ServiceApiPort string
	AllowedOrigin  string

	// Profile
	ProfileCacheTTL time.Duration
	DefaultCurrency string

	// Templates

	// Billing
	InvoicePaymentWaitTimeDays int
	InvoiceOverdueGraceDays    int

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	AttachmentBaseURL  string

	// Attachments
	AttachmentMaxSizeMB     int
	AttachmentURLTTL        time.Duration
	AttachmentOrphanTTL     time.Duration
	ThumbnailMaxDimension   int
	UploadConcurrency       int
	AllowedAttachmentMimes  []string
	AttachmentCleanupPeriod time.Duration

	// App Defaults
	AppName string

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "solodesk")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", "*")
	cfg.DefaultCurrency = getEnv("DEFAULT_CURRENCY", "USD")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@solodesk.app")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.AttachmentBaseURL = getEnv("ATTACHMENT_BASE_URL", "")
	cfg.AppName = getEnv("APP_NAME", "SoloDesk")
	cfg.AllowedAttachmentMimes = splitList(getEnv("ALLOWED_ATTACHMENT_MIMES",
		"image/jpeg,image/png,image/gif,image/webp,application/pdf,text/plain,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document"))

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	profileTTLSeconds, err := strconv.ParseInt(getEnv("PROFILE_CACHE_TTL_SECONDS", "300"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PROFILE_CACHE_TTL_SECONDS: %w", err)
	}
	cfg.ProfileCacheTTL = time.Duration(profileTTLSeconds) * time.Second

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.InvoicePaymentWaitTimeDays, err = strconv.Atoi(getEnv("INVOICE_PAYMENT_WAIT_TIME_DAYS", "14"))
	if err != nil {
		return nil, fmt.Errorf("invalid INVOICE_PAYMENT_WAIT_TIME_DAYS: %w", err)
	}

	cfg.InvoiceOverdueGraceDays, err = strconv.Atoi(getEnv("INVOICE_OVERDUE_GRACE_DAYS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid INVOICE_OVERDUE_GRACE_DAYS: %w", err)
	}

	cfg.AttachmentMaxSizeMB, err = strconv.Atoi(getEnv("ATTACHMENT_MAX_SIZE_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTACHMENT_MAX_SIZE_MB: %w", err)
	}

	urlTTLMinutes, err := strconv.ParseInt(getEnv("ATTACHMENT_URL_TTL_MINUTES", "15"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTACHMENT_URL_TTL_MINUTES: %w", err)
	}
	cfg.AttachmentURLTTL = time.Duration(urlTTLMinutes) * time.Minute

	orphanTTLHours, err := strconv.ParseInt(getEnv("ATTACHMENT_ORPHAN_TTL_HOURS", "24"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTACHMENT_ORPHAN_TTL_HOURS: %w", err)
	}
	cfg.AttachmentOrphanTTL = time.Duration(orphanTTLHours) * time.Hour

	cleanupMinutes, err := strconv.ParseInt(getEnv("ATTACHMENT_CLEANUP_PERIOD_MINUTES", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTACHMENT_CLEANUP_PERIOD_MINUTES: %w", err)
	}
	cfg.AttachmentCleanupPeriod = time.Duration(cleanupMinutes) * time.Minute

	cfg.ThumbnailMaxDimension, err = strconv.Atoi(getEnv("THUMBNAIL_MAX_DIMENSION", "320"))
	if err != nil {
		return nil, fmt.Errorf("invalid THUMBNAIL_MAX_DIMENSION: %w", err)
	}

	cfg.UploadConcurrency, err = strconv.Atoi(getEnv("UPLOAD_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_CONCURRENCY: %w", err)
	}

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
