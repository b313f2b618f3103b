package repository

import "gorm.io/gorm"

// Migrate creates or updates the chat tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&categoryRow{}, &chatRow{}, &paymentRow{})
}
