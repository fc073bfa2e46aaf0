package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shubhamforall/petstore-api/models"
	"github.com/shubhamforall/petstore-api/utils"
)

// PetFilter is an exact-match filter; nil fields are not applied.
type PetFilter struct {
	Type *string
	Age  *int
}

// PetRepository is what the pet handlers need from persistence.
// Missing rows are reported as gorm.ErrRecordNotFound.
type PetRepository interface {
	List(ctx context.Context, filter PetFilter, page, pageSize int) ([]models.Pet, int64, error)
	Get(ctx context.Context, id string) (*models.Pet, error)
	CreateWithImages(ctx context.Context, pet *models.Pet, images []models.Image) error
	Update(ctx context.Context, id string, updates map[string]any) error
	Delete(ctx context.Context, id string) error
}

type PetStore struct {
	db *gorm.DB
}

func NewPetStore(db *gorm.DB) *PetStore {
	return &PetStore{db: db}
}

func (f PetFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Type != nil {
		db = db.Where("type = ?", *f.Type)
	}
	if f.Age != nil {
		db = db.Where("age = ?", *f.Age)
	}
	return db
}

func imagesOldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// List returns one page of pets, newest first, plus the total matching the filter.
func (s *PetStore) List(ctx context.Context, filter PetFilter, page, pageSize int) ([]models.Pet, int64, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Pet{}).Scopes(filter.scope).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("count pets: %w", err)
	}

	pets := []models.Pet{}
	offset, ok := utils.Offset(page, pageSize, count)
	if !ok {
		return pets, count, nil
	}
	err := db.Scopes(filter.scope).
		Preload("Images", imagesOldestFirst).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&pets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list pets: %w", err)
	}
	for i := range pets {
		ensureImages(&pets[i])
	}
	return pets, count, nil
}

func (s *PetStore) Get(ctx context.Context, id string) (*models.Pet, error) {
	var pet models.Pet
	err := s.db.WithContext(ctx).Preload("Images", imagesOldestFirst).First(&pet, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	ensureImages(&pet)
	return &pet, nil
}

// CreateWithImages writes the pet row and its image rows in one transaction.
func (s *PetStore) CreateWithImages(ctx context.Context, pet *models.Pet, images []models.Image) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(pet).Error; err != nil {
			return fmt.Errorf("create pet: %w", err)
		}
		if len(images) == 0 {
			return nil
		}
		for i := range images {
			images[i].PetID = pet.ID
		}
		if err := tx.Create(&images).Error; err != nil {
			return fmt.Errorf("create pet images: %w", err)
		}
		return nil
	})
}

// Update overwrites the given columns only.
func (s *PetStore) Update(ctx context.Context, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Pet{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update pet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the pet and its images together.
func (s *PetStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pet_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return fmt.Errorf("delete pet images: %w", err)
		}
		res := tx.Delete(&models.Pet{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete pet: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func ensureImages(pet *models.Pet) {
	if pet.Images == nil {
		pet.Images = []models.Image{}
	}
}
