package controllers

import "github.com/shubhamforall/petstore-api/models"

// Request schemas. Every field the handlers read is declared here; anything else is dropped.

type PetIDParams struct {
	ID string `json:"id" validate:"required,uuid"`
}

type ListPetsQuery struct {
	Page     int     `json:"page" default:"1" validate:"min=1"`
	PageSize int     `json:"pageSize" default:"10" validate:"min=1"`
	Type     *string `json:"type" validate:"omitempty,max=50"`
	Age      *int    `json:"age" validate:"omitempty,min=0"`
}

// CreatePetInput is also the full-replacement body for PUT.
type CreatePetInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Type        string  `json:"type" validate:"required,max=50"`
	Breed       *string `json:"breed" validate:"omitempty,max=100"`
	Age         *int    `json:"age" validate:"required,min=0"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type PatchPetInput struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Type        *string `json:"type" validate:"omitempty,max=50"`
	Breed       *string `json:"breed" validate:"omitempty,max=100"`
	Age         *int    `json:"age" validate:"omitempty,min=0"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

type CreateUserInput struct {
	Email       string      `json:"email" validate:"required,email,max=255"`
	Password    string      `json:"password" trim:"false" validate:"required,min=6,max=50"`
	FirstName   string      `json:"firstName" validate:"required,max=100"`
	LastName    string      `json:"lastName" validate:"required,max=100"`
	PhoneNumber string      `json:"phoneNumber" validate:"required,e164"`
	Role        models.Role `json:"role" validate:"required,oneof=Admin User"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" trim:"false" validate:"required"`
}

type LoginOutput struct {
	Token string `json:"token"`
}
