package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/squirrel"

	_ "github.com/mattn/go-sqlite3"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"

	"github.com/rs/zerolog"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"

	"taskboard/db"
	"taskboard/pkg/config"
)

type DB struct {
	*sql.DB
	QueryBuilder *squirrel.StatementBuilderType
}

// Wrap builds a DB around an already opened handle, as used by tests.
func Wrap(sqlDB *sql.DB) *DB {
	queryBuilder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	return &DB{
		DB:           sqlDB,
		QueryBuilder: &queryBuilder,
	}
}

// NewDB opens the SQLite file named in cfg through the traced and logged
// driver chain, running migrations first when enabled.
func NewDB(cfg config.DatabaseConfig, logging config.LoggingConfig) (*DB, error) {
	dsn := cfg.Path

	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	if cfg.AutoMigrate {
		migrationDB, err := sql.Open("sqlite3", dsn)

		if err != nil {
			return nil, err
		}

		err = RunMigrations(migrationDB)
		migrationDB.Close()

		if err != nil {
			return nil, err
		}
	}

	tracedDB, err := otelsql.Open("sqlite3", dsn,
		otelsql.WithDBSystem("sqlite"),
		otelsql.WithDBName("taskboard"),
		otelsql.WithTracerProvider(otel.GetTracerProvider()),
	)

	if err != nil {
		return nil, err
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "sql").Logger()

	sqlDB := sqldblogger.OpenDriver(dsn, tracedDB.Driver(), zerologadapter.New(logger),
		sqldblogger.WithMinimumLevel(sqlLogLevel(logging.SQLLevel)),
		sqldblogger.WithSQLQueryAsMessage(true),
	)

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}

	return Wrap(sqlDB), nil
}

func sqlLogLevel(level string) sqldblogger.Level {
	switch strings.ToLower(level) {
	case "trace":
		return sqldblogger.LevelTrace
	case "debug":
		return sqldblogger.LevelDebug
	case "error":
		return sqldblogger.LevelError
	default:
		return sqldblogger.LevelInfo
	}
}

// RunMigrations applies the embedded migrations. The handle is left open.
func RunMigrations(sqlDB *sql.DB) error {
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})

	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	src, err := db.Source()

	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)

	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// RollbackMigrations reverts every applied migration.
func RollbackMigrations(sqlDB *sql.DB) error {
	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})

	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	src, err := db.Source()

	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)

	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("rollback migrations: %w", err)
	}

	return nil
}
