package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/contentsafety/internal/platform/logger"
)

// Open connects to the database named by dsn. postgres:// and postgresql://
// DSNs use the Postgres driver; sqlite:// DSNs use SQLite with the scheme
// stripped (sqlite://file::memory:?cache=shared, sqlite:///var/lib/rules.db).
func Open(dsn string, logg *logger.Logger) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	dialector, driver, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	logger.OrNop(logg).With("service", "DB").Debug("database connected", "driver", driver)
	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, string, error) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return postgres.Open(dsn), "postgres", nil
	case strings.HasPrefix(lower, "sqlite://"):
		path := dsn[len("sqlite://"):]
		if path == "" {
			return nil, "", fmt.Errorf("sqlite dsn missing path")
		}
		return sqlite.Open(path), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("unsupported database dsn scheme")
	}
}

// IsDSN reports whether location names a database this package can open.
func IsDSN(location string) bool {
	_, _, err := dialectorFor(strings.TrimSpace(location))
	return err == nil
}
