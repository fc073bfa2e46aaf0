package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Pet struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Type        string    `json:"type" gorm:"size:50;not null;index:idx_pets_type_age,priority:1"`
	Breed       *string   `json:"breed" gorm:"size:100"`
	Age         int       `json:"age" gorm:"not null;index:idx_pets_type_age,priority:2"`
	Description *string   `json:"description" gorm:"size:255"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Images      []Image   `json:"images" gorm:"foreignKey:PetID;constraint:OnDelete:CASCADE"`
}

func (pet *Pet) BeforeCreate(tx *gorm.DB) (err error) {
	if pet.ID == "" {
		pet.ID = uuid.NewString()
	}
	return
}

// Image points at a stored upload; the bytes themselves live in file storage.
type Image struct {
	ID        string            `json:"id" gorm:"primaryKey;size:36"`
	PetID     string            `json:"petId" gorm:"size:36;not null;index"`
	URL       string            `json:"url" gorm:"not null"`
	Meta      datatypes.JSONMap `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (image *Image) BeforeCreate(tx *gorm.DB) (err error) {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	return
}
