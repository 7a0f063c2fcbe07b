package postgres

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"brokle/internal/config"
)

// DB wraps the GORM handle and the underlying *sql.DB for pool configuration
// and health checks.
type DB struct {
	Gorm  *gorm.DB
	SqlDB *sql.DB
}

// Connect opens the relational connection pool. Sessions are acquired from a
// pool sized ~5 with overflow to 10 (§4.3); writes always run inside a
// transaction via TransactionManager, reads may go direct.
func Connect(cfg *config.Config, logger *logrus.Logger) (*DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Warn),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}

	maxIdle, maxOpen := cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	if maxOpen == 0 {
		maxOpen = 15
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres")
	return &DB{Gorm: db, SqlDB: sqlDB}, nil
}

func (d *DB) Close() error {
	return d.SqlDB.Close()
}
