package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/reportdesk/internal/models"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Initialize opens the database and migrates the schema.
func Initialize(dbPath string) error {
	var initErr error
	once.Do(func() {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create database directory: %w", err)
			return
		}

		var err error
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
		if err != nil {
			initErr = fmt.Errorf("failed to connect to database: %w", err)
			return
		}

		if err := db.AutoMigrate(
			&models.Company{},
			&models.CompanyUser{},
			&models.ReportSchedule{},
			&models.TicketRequest{},
			&models.RequestLog{},
			&models.EmailLog{},
			&models.SystemConfig{},
		); err != nil {
			initErr = fmt.Errorf("failed to migrate database: %w", err)
			return
		}

		logrus.WithField("path", dbPath).Info("database initialized")
	})

	return initErr
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	if db == nil {
		panic("database not initialized, call Initialize() first")
	}
	return db
}

// Close closes the underlying connection pool.
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// SeedDefaults inserts baseline settings on first boot so a fresh install
// is usable without manual setup.
func SeedDefaults(gdb *gorm.DB, maxRangeDays int) error {
	var count int64
	if err := gdb.Model(&models.SystemConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []models.SystemConfig{
		{ConfigKey: "smtp_enabled", ConfigValue: "true", Description: "Toggle outbound report email"},
		{ConfigKey: "max_date_range_days", ConfigValue: fmt.Sprintf("%d", maxRangeDays), Description: "Soft limit for requested date spans"},
	}
	if err := gdb.Create(&defaults).Error; err != nil {
		return err
	}
	logrus.Info("seeded system config defaults")
	return nil
}
