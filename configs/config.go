package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Settings struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	JWTTTL          time.Duration
	CloudinaryURL   string
	UploadFolder    string
	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string
	AppBaseURL      string
	LogJSON         bool
	LogDebug        bool
	NotifyTimeout   time.Duration
	CORSOrigins     string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
}

func init() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not read .env: %v", err)
	}

	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("JWT_TTL", "72h")
	viper.SetDefault("UPLOAD_FOLDER", "smart_roommate")
	viper.SetDefault("APP_BASE_URL", "http://localhost:3000")
	viper.SetDefault("LOG_JSON", false)
	viper.SetDefault("LOG_DEBUG", false)
	viper.SetDefault("NOTIFY_TIMEOUT", "10s")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 20)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
}

func Load() (*Settings, error) {
	s := &Settings{
		Port:            viper.GetString("PORT"),
		DatabaseURL:     viper.GetString("DATABASE_URL"),
		JWTSecret:       viper.GetString("JWT_SECRET"),
		JWTTTL:          viper.GetDuration("JWT_TTL"),
		CloudinaryURL:   viper.GetString("CLOUDINARY_URL"),
		UploadFolder:    viper.GetString("UPLOAD_FOLDER"),
		BrevoAPIKey:     viper.GetString("BREVO_API_KEY"),
		EmailSender:     viper.GetString("EMAIL_SENDER"),
		EmailSenderName: viper.GetString("EMAIL_SENDER_NAME"),
		AppBaseURL:      strings.TrimRight(viper.GetString("APP_BASE_URL"), "/"),
		LogJSON:         viper.GetBool("LOG_JSON"),
		LogDebug:        viper.GetBool("LOG_DEBUG"),
		NotifyTimeout:   viper.GetDuration("NOTIFY_TIMEOUT"),
		CORSOrigins:     viper.GetString("CORS_ORIGINS"),

		DBMaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
	}

	var missing []string
	if s.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if s.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	if s.JWTTTL <= 0 {
		s.JWTTTL = 72 * time.Hour
	}
	if s.NotifyTimeout <= 0 {
		s.NotifyTimeout = 10 * time.Second
	}
	if s.DBMaxIdleConns > s.DBMaxOpenConns && s.DBMaxOpenConns > 0 {
		return nil, errors.New("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}
	return s, nil
}
