package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 服务运行配置，启动时加载一次后显式传入各组件
type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	CORSOrigin    string

	LookupBaseURL  string
	LookupCacheTTL time.Duration

	StoreTimeout  time.Duration
	StoreAttempts uint

	FirebaseProjectID string
	FirebaseJWKSURL   string

	// ExcludeOwnReceived drops a user's own reviews from "reviews received".
	ExcludeOwnReceived bool
	// CarRefreshAfter re-enriches watched cars older than this; 0 disables it.
	CarRefreshAfter time.Duration

	ReviewRatePerMinute int
	ModeratorUIDs       []string
}

const defaultFirebaseJWKS = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// Load 读取 .env（可选）与环境变量
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading config from environment")
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", "sqlite://platerate.db"),
		SessionSecret:       getEnv("SESSION_SECRET", "secret_key_change_me"),
		CORSOrigin:          getEnv("CORS_ORIGIN", "*"),
		LookupBaseURL:       getEnv("LOOKUP_BASE_URL", "http://localhost:9090/vehicle"),
		LookupCacheTTL:      getDuration("LOOKUP_CACHE_TTL", 24*time.Hour),
		StoreTimeout:        getDuration("STORE_TIMEOUT", 5*time.Second),
		StoreAttempts:       uint(getPositiveInt("STORE_ATTEMPTS", 3)),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseJWKSURL:     getEnv("FIREBASE_JWKS_URL", defaultFirebaseJWKS),
		ExcludeOwnReceived:  getBool("EXCLUDE_OWN_RECEIVED", true),
		CarRefreshAfter:     getDuration("CAR_REFRESH_AFTER", 0),
		ReviewRatePerMinute: getInt("REVIEW_RATE_PER_MINUTE", 6),
		ModeratorUIDs:       getList("MODERATOR_UIDS"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// getPositiveInt falls back to the default for values below 1.
func getPositiveInt(key string, defaultValue int) int {
	if v := getInt(key, defaultValue); v > 0 {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
