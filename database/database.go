package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gfurlani/fotocatalogo/models"
)

// InitDB initializes the catalog database and migrates the record schema.
// The catalog is only ever written by the main process; WAL keeps reads
// cheap for the GUI collaborator.
func InitDB(dataSourceName string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		log.Printf("database: warning - failed to set WAL mode: %v", err)
	}

	if err := db.AutoMigrate(&models.ImageRecord{}); err != nil {
		return nil, fmt.Errorf("catalog migration failed: %w", err)
	}

	log.Println("database: catalog initialized at", dataSourceName)
	return db, nil
}
