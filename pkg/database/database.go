package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/bcc-marketplace/config"
)

// InitDB 按配置打开主库
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	return Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database)
}

// InitShards 按 shard_dsns 打开分库，顺序即分片编号
func InitShards(cfg *config.Config) ([]*gorm.DB, error) {
	dbs := make([]*gorm.DB, 0, len(cfg.Database.ShardDSNs))
	for i, dsn := range cfg.Database.ShardDSNs {
		db, err := Open(cfg.Database.Driver, dsn, cfg.Database)
		if err != nil {
			for _, opened := range dbs {
				_ = Close(opened)
			}
			return nil, fmt.Errorf("open shard %d: %w", i, err)
		}
		dbs = append(dbs, db)
	}
	return dbs, nil
}

// Open 打开单个连接并设置连接池
func Open(driver, dsn string, opts config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if opts.LogSQL {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	// sqlite 内存库每个连接是独立的库
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
