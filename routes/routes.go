package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shubhamforall/petstore-api/controllers"
	"github.com/shubhamforall/petstore-api/permissions"
	"github.com/shubhamforall/petstore-api/pipeline"
	"github.com/shubhamforall/petstore-api/validation"
)

// PetMounts are the prefixes the pet routes live under; mutations drop cached reads for all of them.
var PetMounts = []string{"/pets", "/pet"}

type Controllers struct {
	Auth  *controllers.AuthController
	Pets  *controllers.PetController
	Users *controllers.UserController
}

var (
	petID      = func() any { return &controllers.PetIDParams{} }
	listPets   = func() any { return &controllers.ListPetsQuery{} }
	createPet  = func() any { return &controllers.CreatePetInput{} }
	patchPet   = func() any { return &controllers.PatchPetInput{} }
	createUser = func() any { return &controllers.CreateUserInput{} }
	loginInput = func() any { return &controllers.LoginInput{} }
)

// Register wires all HTTP routes.
func Register(app fiber.Router, o *pipeline.Orchestrator, h Controllers, images validation.FileRule) error {
	var table []pipeline.Route

	// Public auth endpoints
	table = append(table, pipeline.Route{
		Method: fiber.MethodPost, Path: "/auth/login",
		Body: loginInput, Handler: h.Auth.Login,
	})

	// Pets
	for _, mount := range PetMounts {
		table = append(table,
			pipeline.Route{
				Method: fiber.MethodGet, Path: mount, Action: permissions.GetPets,
				Query: listPets, Cache: true, Handler: h.Pets.GetPets,
			},
			pipeline.Route{
				Method: fiber.MethodPost, Path: mount, Action: permissions.CreatePet,
				Body: createPet, Files: &images, Idempotent: true,
				Invalidates: PetMounts, Handler: h.Pets.CreatePet,
			},
			pipeline.Route{
				Method: fiber.MethodGet, Path: mount + "/:id", Action: permissions.GetPets,
				Params: petID, Cache: true, Handler: h.Pets.GetPet,
			},
			pipeline.Route{
				Method: fiber.MethodPut, Path: mount + "/:id", Action: permissions.UpdatePet,
				Params: petID, Body: createPet, Invalidates: PetMounts, Handler: h.Pets.UpdatePet,
			},
			pipeline.Route{
				Method: fiber.MethodPatch, Path: mount + "/:id", Action: permissions.UpdatePet,
				Params: petID, Body: patchPet, Invalidates: PetMounts, Handler: h.Pets.PatchPet,
			},
			pipeline.Route{
				Method: fiber.MethodDelete, Path: mount + "/:id", Action: permissions.DeletePet,
				Params: petID, Invalidates: PetMounts, Handler: h.Pets.DeletePet,
			},
		)
	}

	// Users
	table = append(table,
		pipeline.Route{
			Method: fiber.MethodPost, Path: "/users", Action: permissions.CreateUser,
			Body: createUser, Idempotent: true, Handler: h.Users.CreateUser,
		},
		pipeline.Route{
			Method: fiber.MethodGet, Path: "/users", Action: permissions.GetUsers,
			Handler: h.Users.GetUsers,
		},
	)

	for _, r := range table {
		if err := o.Register(app, r); err != nil {
			return err
		}
	}
	return nil
}
