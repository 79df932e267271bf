package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chxlky/project-board/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqliteParams turns on foreign keys, waits on a locked database instead of
// failing, and starts every transaction with BEGIN IMMEDIATE so writers in
// the same column are serialized.
const sqliteParams = "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

func Init(dbPath string) (*gorm.DB, error) {
	dbFile := sqlite.Open(dsn(dbPath))
	db, err := gorm.Open(dbFile, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Column{},
		&models.Label{},
		&models.Card{},
		&models.ChecklistItem{},
		&models.Comment{},
		&models.Attachment{},
		&models.Activity{},
	); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	zap.L().Info("Database initialised and migrated successfully", zap.String("path", dbPath))

	return db, nil
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + sqliteParams
	}
	return dbPath + "?" + sqliteParams
}

var defaultColumns = []models.Column{
	{ID: "done", Title: "Done", Position: 0},
	{ID: "current", Title: "Current Sprint", Position: 1},
	{ID: "progress", Title: "In Progress", Position: 2},
	{ID: "hold", Title: "On Hold", Position: 3},
}

var defaultLabels = []models.Label{
	{Name: "Frontend", Color: "bg-purple-500"},
	{Name: "High Priority", Color: "bg-red-500"},
	{Name: "Backend", Color: "bg-blue-500"},
	{Name: "Design", Color: "bg-green-500"},
	{Name: "Documentation", Color: "bg-orange-500"},
}

// Seed creates the starter columns and labels on an empty board.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Column{}).Count(&count).Error; err != nil {
		return fmt.Errorf("counting columns: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		columns := append([]models.Column(nil), defaultColumns...)
		if err := tx.Create(&columns).Error; err != nil {
			return fmt.Errorf("seeding columns: %w", err)
		}
		for _, label := range defaultLabels {
			err := tx.Create(&label).Error
			if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("seeding label %q: %w", label.Name, err)
			}
		}
		zap.L().Info("Seeded default board", zap.Int("columns", len(columns)), zap.Int("labels", len(defaultLabels)))
		return nil
	})
}
