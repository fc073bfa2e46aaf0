package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/middlewares"
	"github.com/shubhamforall/petstore-api/models"
	"github.com/shubhamforall/petstore-api/pipeline"
	"github.com/shubhamforall/petstore-api/validation"
)

const (
	msgUserCreated  = "User created successfully"
	msgUsersFetched = "Users fetched successfully"
	msgEmailTaken   = "Email already in use"
)

type UserController struct {
	users database.UserRepository
}

func NewUserController(users database.UserRepository) *UserController {
	return &UserController{users: users}
}

// CreateUser answers a taken email with 400, whether the lookup or the unique index catches it.
func (uc *UserController) CreateUser(c *fiber.Ctx) (*pipeline.Result, error) {
	in := middlewares.Input[CreateUserInput](c, validation.SourceBody)

	if _, err := uc.users.FindByEmail(c.UserContext(), in.Email); err == nil {
		return nil, apperror.Conflict(msgEmailTaken)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &models.User{
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Role:        in.Role,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, apperror.Internal(err)
	}
	if err := uc.users.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict(msgEmailTaken)
		}
		return nil, err
	}
	return pipeline.Created(msgUserCreated, user), nil
}

func (uc *UserController) GetUsers(c *fiber.Ctx) (*pipeline.Result, error) {
	users, err := uc.users.List(c.UserContext())
	if err != nil {
		return nil, err
	}
	return pipeline.OK(msgUsersFetched, users), nil
}
