package controllers

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/middlewares"
	"github.com/shubhamforall/petstore-api/models"
	"github.com/shubhamforall/petstore-api/pipeline"
	"github.com/shubhamforall/petstore-api/storage"
	"github.com/shubhamforall/petstore-api/utils"
	"github.com/shubhamforall/petstore-api/validation"
)

const (
	msgPetsFetched = "Pets fetched successfully"
	msgPetFetched  = "Pet fetched successfully"
	msgPetCreated  = "Pet added successfully"
	msgPetUpdated  = "Pet updated successfully"
	msgPetNotFound = "Pet not found"
)

// FileStore is where uploaded pet images are written before their rows exist.
type FileStore interface {
	Save(files []*multipart.FileHeader) ([]storage.StoredFile, error)
	Remove(files []storage.StoredFile) error
}

type PetController struct {
	pets  database.PetRepository
	files FileStore
	log   logrus.FieldLogger
}

func NewPetController(pets database.PetRepository, files FileStore, log logrus.FieldLogger) *PetController {
	return &PetController{pets: pets, files: files, log: log}
}

func (pc *PetController) GetPets(c *fiber.Ctx) (*pipeline.Result, error) {
	q := middlewares.Input[ListPetsQuery](c, validation.SourceQuery)

	pets, count, err := pc.pets.List(c.UserContext(), database.PetFilter{Type: q.Type, Age: q.Age}, q.Page, q.PageSize)
	if err != nil {
		return nil, err
	}
	return pipeline.OK(msgPetsFetched, pipeline.Page[models.Pet]{
		Results:        pets,
		Count:          count,
		PagesAvailable: utils.PagesAvailable(count, q.PageSize),
	}), nil
}

func (pc *PetController) GetPet(c *fiber.Ctx) (*pipeline.Result, error) {
	p := middlewares.Input[PetIDParams](c, validation.SourceParams)
	pet, err := pc.find(c, p.ID)
	if err != nil {
		return nil, err
	}
	return pipeline.OK(msgPetFetched, pet), nil
}

// CreatePet stores the uploads first and then writes the pet and its image rows in one
// transaction. If the transaction fails the stored files are removed again.
func (pc *PetController) CreatePet(c *fiber.Ctx) (*pipeline.Result, error) {
	in := middlewares.Input[CreatePetInput](c, validation.SourceBody)

	stored, err := pc.files.Save(middlewares.Uploads(c))
	if err != nil {
		return nil, apperror.Internal(err)
	}

	pet := &models.Pet{
		Name:        in.Name,
		Type:        in.Type,
		Breed:       in.Breed,
		Age:         *in.Age,
		Description: in.Description,
	}
	images := make([]models.Image, 0, len(stored))
	for _, f := range stored {
		images = append(images, models.Image{
			URL: f.URL,
			Meta: datatypes.JSONMap{
				"originalName": f.OriginalName,
				"size":         f.Size,
				"contentType":  f.ContentType,
			},
		})
	}

	if err := pc.pets.CreateWithImages(c.UserContext(), pet, images); err != nil {
		if rerr := pc.files.Remove(stored); rerr != nil {
			pc.log.WithError(rerr).Warn("remove uploads of failed pet creation")
		}
		return nil, err
	}

	created, err := pc.find(c, pet.ID)
	if err != nil {
		return nil, err
	}
	return pipeline.Created(msgPetCreated, created), nil
}

// UpdatePet replaces every field; optional fields left out become null.
func (pc *PetController) UpdatePet(c *fiber.Ctx) (*pipeline.Result, error) {
	p := middlewares.Input[PetIDParams](c, validation.SourceParams)
	in := middlewares.Input[CreatePetInput](c, validation.SourceBody)

	return pc.update(c, p.ID, utils.UpdateColumns(in, utils.Replace))
}

// PatchPet only touches the fields that were sent.
func (pc *PetController) PatchPet(c *fiber.Ctx) (*pipeline.Result, error) {
	p := middlewares.Input[PetIDParams](c, validation.SourceParams)
	in := middlewares.Input[PatchPetInput](c, validation.SourceBody)

	return pc.update(c, p.ID, utils.UpdateColumns(in, utils.Patch))
}

func (pc *PetController) DeletePet(c *fiber.Ctx) (*pipeline.Result, error) {
	p := middlewares.Input[PetIDParams](c, validation.SourceParams)
	if err := pc.pets.Delete(c.UserContext(), p.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(msgPetNotFound)
		}
		return nil, err
	}
	return pipeline.NoContent(), nil
}

func (pc *PetController) update(c *fiber.Ctx, id string, updates map[string]any) (*pipeline.Result, error) {
	if _, err := pc.find(c, id); err != nil {
		return nil, err
	}
	if err := pc.pets.Update(c.UserContext(), id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(msgPetNotFound)
		}
		return nil, err
	}
	pet, err := pc.find(c, id)
	if err != nil {
		return nil, err
	}
	return pipeline.OK(msgPetUpdated, pet), nil
}

func (pc *PetController) find(c *fiber.Ctx, id string) (*models.Pet, error) {
	pet, err := pc.pets.Get(c.UserContext(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(msgPetNotFound)
	}
	return pet, err
}
