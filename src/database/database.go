package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/pitfolio/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tax_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		source TEXT NOT NULL,
		year INTEGER NOT NULL,
		trade_revenue REAL NOT NULL DEFAULT 0,
		trade_cost REAL NOT NULL DEFAULT 0,
		trade_loss_prev_years REAL NOT NULL DEFAULT 0,
		crypto_revenue REAL NOT NULL DEFAULT 0,
		crypto_cost REAL NOT NULL DEFAULT 0,
		crypto_cost_excess_prev_years REAL NOT NULL DEFAULT 0,
		domestic_interest REAL NOT NULL DEFAULT 0,
		foreign_interest REAL NOT NULL DEFAULT 0,
		foreign_interest_withholding_tax REAL NOT NULL DEFAULT 0,
		employment_revenue REAL NOT NULL DEFAULT 0,
		employment_cost REAL NOT NULL DEFAULT 0,
		social_security_contributions REAL NOT NULL DEFAULT 0,
		donations REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, source, year)
	);
	`

	if _, err := DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.", "path", databasePath)
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}
