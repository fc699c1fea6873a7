package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr string
	GinMode string

	DatabaseDSN string
	AutoMigrate bool

	JWTSecret        string
	JWTRefreshSecret string

	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string
}

// LoadEnv reads an optional .env file then the process environment.
func LoadEnv(files ...string) Env {
	if err := godotenv.Load(files...); err != nil {
		log.Println("fichier .env absent, utilisation de l'environnement système")
	}

	appAddr := getEnv("APP_ADDR", ":8080")
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("APP_ADDR") == "" {
		appAddr = ":" + port
	}

	jwtSecret := getEnv("JWT_SECRET", "kocrou-secret-change-me")

	return Env{
		AppAddr:            appAddr,
		GinMode:            getEnv("GIN_MODE", ""),
		DatabaseDSN:        databaseDSN(),
		AutoMigrate:        getBool("AUTO_MIGRATE", true),
		JWTSecret:          jwtSecret,
		JWTRefreshSecret:   getEnv("JWT_REFRESH_SECRET", jwtSecret),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "reservation-events"),
	}
}

func databaseDSN() string {
	if dsn := getEnv("DB_DSN", ""); dsn != "" {
		return dsn
	}
	return BuildDSN(
		getEnv("DB_USER", "root"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_HOST", "127.0.0.1:3306"),
		getEnv("DB_NAME", "kocrou_transport"),
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
