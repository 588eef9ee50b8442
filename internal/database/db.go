package database

import (
	"fixtrack/backend/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Warn().Err(err).Msg("failed to auto-migrate models")
	}

	return db, nil
}

// Migrate runs AutoMigrate for every core model. Exposed separately so tests
// can run it against an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Customer{},
		&model.Order{},
		&model.HistoryLog{},
		&model.Payment{},
		&model.CashClosing{},
		&model.Expense{},
		&model.Part{},
		&model.PointRequest{},
		&model.ReturnRequest{},
		&model.ExternalRepair{},
	)
}
