package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/shubhamforall/petstore-api/models"
)

// AutoMigrate applies the (idempotent) schema migrations for every table the API owns.
// Tables, columns, indexes and the images -> pets cascade all come from the model tags.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Pet{},
		&models.Image{},
		&models.IdempotencyKey{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}
