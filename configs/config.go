package configs

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	AppPort       int
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     int
	JWTSecret     string
	EncryptionKey string
	// PresidentPassword, when set, seeds the cross-track account at startup.
	PresidentPassword string
	Tracks            []string
}

// IsProduction reports whether the app runs with production error verbosity.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		// Only log when not running under go test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	appPort, err := strconv.Atoi(os.Getenv("APP_PORT"))
	if err != nil {
		appPort = 3004
	}

	dbPort, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		dbPort = 5432
	}

	redisPort, err := strconv.Atoi(os.Getenv("REDIS_PORT"))
	if err != nil {
		redisPort = 6379
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "secret"
	}

	encKey := os.Getenv("ENCRYPTION_KEY")
	if encKey == "" {
		encKey = "MySecretEncryptionKey!"
	}

	// Organizational tracks used to scope project visibility.
	tracks := []string{"education", "consulting", "technology", "finance"}
	if raw := os.Getenv("TRACKS"); raw != "" {
		tracks = tracks[:0]
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tracks = append(tracks, t)
			}
		}
	}

	return Config{
		AppEnv:            os.Getenv("APP_ENV"),
		AppPort:           appPort,
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            dbPort,
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		RedisHost:         os.Getenv("REDIS_HOST"),
		RedisPort:         redisPort,
		JWTSecret:         secret,
		EncryptionKey:     encKey,
		PresidentPassword: os.Getenv("PRESIDENT_PASSWORD"),
		Tracks:            tracks,
	}
}
