package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"trackcrm/configs"

	_ "github.com/lib/pq"
)

// queryTimeout bounds every store call so a stalled database surfaces as an
// error instead of a hung request.
const queryTimeout = 5 * time.Second

func ConnectDB(cfg configs.Config) *sql.DB {
	psqlconn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	return db
}

// QueryContext returns the bounded context used for all store calls.
func QueryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), queryTimeout)
}
