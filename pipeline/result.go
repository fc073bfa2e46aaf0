package pipeline

import "github.com/gofiber/fiber/v2"

// Result is what a handler hands back: the data and message the envelope carries.
type Result struct {
	Status  int
	Message string
	Data    any
}

func OK(message string, data any) *Result {
	return &Result{Status: fiber.StatusOK, Message: message, Data: data}
}

func Created(message string, data any) *Result {
	return &Result{Status: fiber.StatusCreated, Message: message, Data: data}
}

// NoContent is sent as a bare 204.
func NoContent() *Result {
	return &Result{Status: fiber.StatusNoContent}
}

// Handler is business logic; it never writes to the response itself.
type Handler func(c *fiber.Ctx) (*Result, error)

// Page is the data shape of paginated lists.
type Page[T any] struct {
	Results        []T   `json:"results"`
	Count          int64 `json:"count"`
	PagesAvailable int64 `json:"pagesAvailable"`
}
