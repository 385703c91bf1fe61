package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/costing/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

// NormalizeType maps accepted aliases of DATABASE_TYPE to a dialect name.
func NormalizeType(dbType string) string {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "postgres", "postgresql", "pg":
		return TypePostgres
	case "mysql", "mariadb":
		return TypeMySQL
	case "sqlite", "sqlite3":
		return TypeSQLite
	default:
		return ""
	}
}

func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	switch NormalizeType(cfg.DBType) {
	case TypeMySQL:
		return mysql.New(mysql.Config{
			DSN:               dsn,
			DefaultStringSize: 255,
		}), nil
	case TypePostgres:
		return postgres.New(postgres.Config{DSN: dsn}), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN renders the connection string of the configured dialect. Timestamps
// are kept in UTC on every dialect.
func DSN(cfg config.Config) (string, error) {
	switch NormalizeType(cfg.DBType) {
	case TypeMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		), nil
	case TypePostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
			cfg.DBSSLMode,
		), nil
	case TypeSQLite:
		path := strings.TrimSpace(cfg.DBPath)
		if path == "" {
			return "", fmt.Errorf("sqlite requires DATABASE_PATH")
		}
		if path == ":memory:" || strings.Contains(path, "?") {
			return path, nil
		}
		return path + "?_foreign_keys=on&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}
