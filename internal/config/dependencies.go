package config

import (
	"context"
	"database/sql"

	"trackcrm/configs"
	"trackcrm/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
)

var (
	// Global dependencies shared across the application
	Cfg         configs.Config
	DB          *sql.DB
	SecretKey   []byte
	Validate    = validator.New()
	Ctx         = context.Background()
	RedisClient *redis.Client
)

// Apply stores the loaded config and registers the custom enum validators
// used in handler request structs ("role", "status" and "track" tags).
func Apply(cfg configs.Config) {
	Cfg = cfg
	SecretKey = []byte(cfg.JWTSecret)

	_ = Validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.ValidRole(fl.Field().String())
	})
	_ = Validate.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return models.ValidStatus(fl.Field().String())
	})
	_ = Validate.RegisterValidation("track", func(fl validator.FieldLevel) bool {
		for _, t := range Cfg.Tracks {
			if t == fl.Field().String() {
				return true
			}
		}
		return false
	})
}
