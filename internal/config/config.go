package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`
	PublicURL   string `mapstructure:"public_url"`

	// Firebase (identity provider, push delivery, object storage)
	FirebaseCredentialsFile string `mapstructure:"firebase_credentials_file"`
	FirebaseProjectID       string `mapstructure:"firebase_project_id"`
	StorageBucket           string `mapstructure:"storage_bucket"`

	// Auth
	JWTSecret        string `mapstructure:"jwt_secret"`         // HS256 fallback when the Admin SDK is unavailable
	AllowedSSODomain string `mapstructure:"allowed_sso_domain"` // corporate SSO e-mail domain restriction

	// Notification Gateway (e-mail fan-out relay)
	NotificationGatewayDetails NotificationGatewayConfig `mapstructure:"notification_gateway"`
}

type NotificationGatewayConfig struct {
	URL        string `mapstructure:"url"`
	InstanceID string `mapstructure:"instance_id"`
	APIToken   string `mapstructure:"api_token"`
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present so 'go run' works without manually
	// exporting env vars. Missing file is fine (Production/Docker).
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	v := viper.New()

	// Set default values
	v.SetDefault("port", "8080")
	v.SetDefault("allowed_sso_domain", "petrobras.com.br")
	v.SetDefault("firebase_credentials_file", "firebase-service-account-key.json")

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("dev.config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("norahub")

	// Bind standard environment variables (Docker/deploy compatibility),
	// so standard keys like DATABASE_URL work without the prefix.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("public_url", "PUBLIC_URL")

	_ = v.BindEnv("firebase_credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("firebase_project_id", "FIREBASE_PROJECT_ID")
	_ = v.BindEnv("storage_bucket", "STORAGE_BUCKET")

	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("allowed_sso_domain", "ALLOWED_SSO_DOMAIN")

	_ = v.BindEnv("notification_gateway.url", "norahub_GATEWAY_URL")
	_ = v.BindEnv("notification_gateway.api_token", "norahub_GATEWAY_TOKEN")
	_ = v.BindEnv("notification_gateway.instance_id", "norahub_INSTANCE_ID")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("Loaded config from: %s", v.ConfigFileUsed())
	}

	// 2. Unmarshal into struct
	if err := v.Unmarshal(&App); err != nil {
		return err
	}

	// 3. Backfill environment variables for code that still reads os.Getenv()
	setEnvIfEmpty("DATABASE_URL", App.DatabaseURL)
	setEnvIfEmpty("REDIS_URL", App.RedisURL)
	setEnvIfEmpty("PORT", App.Port)
	setEnvIfEmpty("GOOGLE_APPLICATION_CREDENTIALS", App.FirebaseCredentialsFile)
	setEnvIfEmpty("STORAGE_BUCKET", App.StorageBucket)
	setEnvIfEmpty("norahub_GATEWAY_URL", App.NotificationGatewayDetails.URL)
	setEnvIfEmpty("norahub_GATEWAY_TOKEN", App.NotificationGatewayDetails.APIToken)
	setEnvIfEmpty("norahub_INSTANCE_ID", App.NotificationGatewayDetails.InstanceID)

	return nil
}

func setEnvIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}
