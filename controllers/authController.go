package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shubhamforall/petstore-api/auth"
	"github.com/shubhamforall/petstore-api/middlewares"
	"github.com/shubhamforall/petstore-api/pipeline"
	"github.com/shubhamforall/petstore-api/validation"
)

const msgLoggedIn = "Login successful"

type AuthController struct {
	auth *auth.Authenticator
}

func NewAuthController(a *auth.Authenticator) *AuthController {
	return &AuthController{auth: a}
}

func (ac *AuthController) Login(c *fiber.Ctx) (*pipeline.Result, error) {
	in := middlewares.Input[LoginInput](c, validation.SourceBody)

	token, err := ac.auth.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return pipeline.OK(msgLoggedIn, LoginOutput{Token: token}), nil
}
