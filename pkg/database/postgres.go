package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"neomate-go/pkg/log"
)

var DB *gorm.DB

// InitPostgres 初始化 PostgreSQL 数据库连接。
func InitPostgres(dsn string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("PostgreSQL database connected successfully")
}
