package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Razorpay struct {
		KeyID         string `mapstructure:"key_id"`
		KeySecret     string `mapstructure:"key_secret"`
		WebhookSecret string `mapstructure:"webhook_secret"`
	} `mapstructure:"razorpay"`

	SMS struct {
		Enabled   bool   `mapstructure:"enabled"`
		APIKey    string `mapstructure:"api_key"`
		SenderID  string `mapstructure:"sender_id"`
		DLTEntity string `mapstructure:"dlt_entity"`
	} `mapstructure:"sms"`

	WhatsApp struct {
		Enabled       bool   `mapstructure:"enabled"`
		APIKey        string `mapstructure:"api_key"`
		PhoneNumberID string `mapstructure:"phone_number_id"`
	} `mapstructure:"whatsapp"`

	Archive struct {
		Enabled   bool   `mapstructure:"enabled"`
		Endpoint  string `mapstructure:"endpoint"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
	} `mapstructure:"archive"`

	Scheduler struct {
		Enabled           bool   `mapstructure:"enabled"`
		OverdueSweep      string `mapstructure:"overdue_sweep"`
		MonthlyGeneration string `mapstructure:"monthly_generation"`
		PaymentReminders  string `mapstructure:"payment_reminders"`
		ReconcilePayments string `mapstructure:"reconcile_payments"`
		LateFee           struct {
			FlatAmount float64 `mapstructure:"flat_amount"`
			GraceDays  int     `mapstructure:"grace_days"`
		} `mapstructure:"late_fee"`
	} `mapstructure:"scheduler"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "rentledger-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "rentledger_db")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.overdue_sweep", "30 0 * * *")
	v.SetDefault("scheduler.monthly_generation", "0 1 1 * *")
	v.SetDefault("scheduler.payment_reminders", "0 9 * * *")
	v.SetDefault("scheduler.reconcile_payments", "15 2 * * *")
	v.SetDefault("scheduler.late_fee.flat_amount", 0)
	v.SetDefault("scheduler.late_fee.grace_days", 0)
	v.SetDefault("archive.region", "auto")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	// Override JWT secret from environment if not set
	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		if cfg.JWT.Secret == "" {
			log.Fatal("JWT_SECRET not found in environment or config file")
		}
	}

	// Load Razorpay config from environment variables
	if keyID := os.Getenv("RAZORPAY_KEY_ID"); keyID != "" {
		cfg.Razorpay.KeyID = keyID
	}
	if keySecret := os.Getenv("RAZORPAY_KEY_SECRET"); keySecret != "" {
		cfg.Razorpay.KeySecret = keySecret
	}
	if webhookSecret := os.Getenv("RAZORPAY_WEBHOOK_SECRET"); webhookSecret != "" {
		cfg.Razorpay.WebhookSecret = webhookSecret
	}

	// SMS provider credentials come from the environment only
	if apiKey := os.Getenv("SMS_API_KEY"); apiKey != "" {
		cfg.SMS.APIKey = apiKey
		cfg.SMS.Enabled = true
	}
	if senderID := os.Getenv("SMS_SENDER_ID"); senderID != "" {
		cfg.SMS.SenderID = senderID
	}

	// WhatsApp Cloud API credentials come from the environment only
	if apiKey := os.Getenv("WHATSAPP_API_KEY"); apiKey != "" {
		cfg.WhatsApp.APIKey = apiKey
	}
	if phoneNumberID := os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); phoneNumberID != "" {
		cfg.WhatsApp.PhoneNumberID = phoneNumberID
		cfg.WhatsApp.Enabled = cfg.WhatsApp.APIKey != ""
	}

	// Archive bucket credentials come from the environment only
	if endpoint := os.Getenv("ARCHIVE_ENDPOINT"); endpoint != "" {
		cfg.Archive.Endpoint = endpoint
	}
	if accessKey := os.Getenv("ARCHIVE_ACCESS_KEY"); accessKey != "" {
		cfg.Archive.AccessKey = accessKey
	}
	if secretKey := os.Getenv("ARCHIVE_SECRET_KEY"); secretKey != "" {
		cfg.Archive.SecretKey = secretKey
	}
	if bucket := os.Getenv("ARCHIVE_BUCKET"); bucket != "" {
		cfg.Archive.Bucket = bucket
		cfg.Archive.Enabled = cfg.Archive.AccessKey != "" && cfg.Archive.SecretKey != ""
	}

	return &cfg
}
