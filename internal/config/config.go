package config

import (
	"os"
	"strconv"

	"codenames/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	// Word pool
	WordsBackend string // "file" or "postgres"
	WordsFile    string
	DatabaseURL  string

	// Store backend
	StoreBackend  string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigin string

	LogLevel string
	LogJSON  bool
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	wordsBackend := os.Getenv("WORDS_BACKEND")
	if wordsBackend == "" {
		wordsBackend = "file"
	}

	wordsFile := os.Getenv("WORDS_FILE")
	dbURL := os.Getenv("DATABASE_URL")

	switch wordsBackend {
	case "file":
		if wordsFile == "" {
			logger.Fatal("WORDS_FILE is not set")
		}
	case "postgres":
		if dbURL == "" {
			logger.Fatal("DATABASE_URL is not set (required for WORDS_BACKEND=postgres)")
		}
	default:
		logger.Fatal("unknown WORDS_BACKEND", "backend", wordsBackend)
	}

	storeBackend := os.Getenv("STORE_BACKEND")
	if storeBackend == "" {
		storeBackend = "memory"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if storeBackend == "redis" && redisAddr == "" {
		logger.Fatal("REDIS_ADDR is not set (required for STORE_BACKEND=redis)")
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			redisDB = n
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		AppPort:       port,
		WordsBackend:  wordsBackend,
		WordsFile:     wordsFile,
		DatabaseURL:   dbURL,
		StoreBackend:  storeBackend,
		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		LogLevel:      logLevel,
		LogJSON:       os.Getenv("LOG_JSON") == "true",
	}
}
