package config

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	PublicBaseURL   string
}

type StravaConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Config struct {
	DBURL              string
	Port               string
	Environment        string
	LogLevel           string
	SiteURL            string
	JWTSecret          string
	SupabaseURL        string
	SupabaseServiceKey string
	ResendAPIKey       string
	EmailFrom          string
	AdminEmail         string
	EncryptionSecret   string
	MaintenanceMode    bool
	CorsConfig         cors.Options
	Strava             StravaConfig
	R2                 R2Config
}

// Load reads configuration from the environment, optionally seeded from an env
// file named by ENV_FILE (default ".env"). Values the server cannot run without
// return an error; everything else falls back to a development default.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	siteURL := strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/")

	cfg := &Config{
		DBURL:              getEnv("DB_URL", ""),
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		SiteURL:            siteURL,
		JWTSecret:          getEnv("JWT_SECRET", ""),
		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
		EmailFrom:          getEnv("EMAIL_FROM", "Runnmate <hello@runnmate.com>"),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		EncryptionSecret:   getEnv("ENCRYPTION_SECRET", ""),
		MaintenanceMode:    getEnv("MAINTENANCE_MODE", "false") == "true",
		CorsConfig:         CorsConfig(siteURL),
		Strava: StravaConfig{
			ClientID:     getEnv("STRAVA_CLIENT_ID", ""),
			ClientSecret: getEnv("STRAVA_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("STRAVA_REDIRECT_URL", siteURL+"/api/v1/strava/callback"),
		},
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
			PublicBaseURL:   strings.TrimRight(getEnv("R2_PUBLIC_BASE_URL", ""), "/"),
		},
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EncryptionSecret == "" {
		return nil, fmt.Errorf("ENCRYPTION_SECRET is required")
	}

	return cfg, nil
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func CorsConfig(siteURL string) cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", siteURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
