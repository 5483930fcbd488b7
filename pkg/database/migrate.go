package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate 按驱动同步表结构
// postgres 执行内嵌 SQL 迁移；sqlite 按 models 执行 AutoMigrate（SQL 脚本仅面向 PostgreSQL）
func Migrate(db *gorm.DB, driver string, logger *zap.Logger, models ...interface{}) error {
	if driver == "sqlite" {
		return AutoMigrate(db, logger, models...)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return RunMigrations(sqlDB, logger)
}

// RunMigrations 执行 PostgreSQL 数据库迁移，应用所有未执行的版本
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		// 上次迁移中断，需人工修复后 force 版本
		return fmt.Errorf("数据库迁移处于 dirty 状态 (version=%d)", from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	to, _, _ := m.Version()
	logger.Info("数据库迁移完成", zap.Uint("from_version", from), zap.Uint("to_version", to))
	return nil
}

// AutoMigrate 按模型建表（SQLite 本地运行）
func AutoMigrate(db *gorm.DB, logger *zap.Logger, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("AutoMigrate 失败: %w", err)
	}
	logger.Info("数据库表结构同步完成", zap.Int("models", len(models)))
	return nil
}
