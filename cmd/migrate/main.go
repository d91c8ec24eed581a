package main

import (
	"database/sql"
	"flag"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"taskboard/internal/adapter/database/postgres"
	"taskboard/internal/adapter/database/sqlite"
	"taskboard/pkg/config"
)

func main() {
	down := flag.Bool("down", false, "revert every applied migration instead of applying them")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()

	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger, err := config.NewLokiLogger(cfg.Telemetry.ServiceName, cfg.Logging.LokiURL, cfg.Logging.Level)

	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}

	defer logger.Sync()

	direction := "up"

	if *down {
		direction = "down"
	}

	if err := run(cfg.Database, *down); err != nil {
		logger.Logger.Fatal("Migration failed",
			zap.String("driver", cfg.Database.Driver),
			zap.String("direction", direction),
			zap.Error(err))
	}

	logger.Logger.Info("Migrations finished",
		zap.String("driver", cfg.Database.Driver),
		zap.String("direction", direction))
}

func run(cfg config.DatabaseConfig, down bool) error {
	if cfg.Driver == config.DriverPostgres {
		if down {
			return postgres.RollbackMigrations(cfg.URL)
		}

		return postgres.RunMigrations(cfg.URL)
	}

	db, err := sql.Open("sqlite3", cfg.Path)

	if err != nil {
		return err
	}

	defer db.Close()

	if down {
		return sqlite.RollbackMigrations(db)
	}

	return sqlite.RunMigrations(db)
}
