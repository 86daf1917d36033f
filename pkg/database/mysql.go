// Package database 负责创建数据库与 Redis 连接，由进程入口持有并注入各层。
package database

import (
	"fmt"
	"time"

	"matesl-go/internal/config"
	"matesl-go/internal/model"
	"matesl-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 根据 database.driver 打开 MySQL 或 SQLite 连接。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.SQLite.Path)
	case "", "mysql":
		return NewMySQL(cfg.MySQL.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewMySQL 初始化 MySQL 数据库连接
func NewMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("MySQL database connected successfully")
	return db, nil
}

// NewSQLite 打开 SQLite 数据库，path 为 ":memory:" 时用于测试。
func NewSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// 内存库每个连接都是独立的库，只能保留一个连接
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// AutoMigrate 创建或更新全部表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Office{},
		&model.Procedure{},
		&model.ProcedureTerm{},
		&model.ProcedureStep{},
		&model.Requirement{},
		&model.Fee{},
		&model.ProcedureOffice{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.SearchHistory{},
	)
}
