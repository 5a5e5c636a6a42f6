package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort     string // Application port
	BaseURL     string // Public base URL, used in photo URLs and reset links
	DBUser      string // Database user
	DBPassword  string // Database password
	DBHost      string // Database host
	DBPort      string // Database port
	DBName      string // Database name
	JWTSecret   string // JWT secret key
	RedisAddr   string // Redis server address
	RedisPass   string // Redis password
	RedisDB     int    // Redis database number
	UploadDir   string // Directory for uploaded profile photos
	SMTPEnabled bool   // Whether outgoing mail is enabled
	SMTPHost    string // SMTP server host
	SMTPPort    int    // SMTP server port
	SMTPUser    string // SMTP username
	SMTPPass    string // SMTP password
	SMTPFrom    string // From address for outgoing mail
	IsProd      bool   // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	smtpPort, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	cfg := &Config{
		AppPort:     os.Getenv("APP_PORT"),
		BaseURL:     os.Getenv("BASE_URL"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBHost:      os.Getenv("DB_HOST"),
		DBPort:      os.Getenv("DB_PORT"),
		DBName:      os.Getenv("DB_NAME"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		RedisPass:   os.Getenv("REDIS_PASS"),
		RedisDB:     redisDB,
		UploadDir:   os.Getenv("UPLOAD_DIR"),
		SMTPEnabled: os.Getenv("SMTP_ENABLED") == "true",
		SMTPHost:    os.Getenv("SMTP_HOST"),
		SMTPPort:    smtpPort,
		SMTPUser:    os.Getenv("SMTP_USER"),
		SMTPPass:    os.Getenv("SMTP_PASS"),
		SMTPFrom:    os.Getenv("SMTP_FROM"),
		IsProd:      os.Getenv("IS_PROD") == "true",
	}
	// Defaults for optional settings
	if cfg.AppPort == "" {
		cfg.AppPort = "5000"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.AppPort
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	return cfg
}
