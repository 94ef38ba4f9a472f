package database

import (
	"seatflow/internal/events"
	"seatflow/internal/sales"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&events.Event{},
		&sales.Sale{},
		&sales.SaleSeat{},
	)
}
