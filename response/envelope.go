package response

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/shubhamforall/petstore-api/apperror"
)

// Messages carries the human message and, on failures, a machine-readable code.
type Messages struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Envelope is the shape of every response body this API writes.
type Envelope struct {
	Data       json.RawMessage       `json:"data"`
	Errors     []apperror.FieldError `json:"errors"`
	Messages   Messages              `json:"messages"`
	StatusCode int                   `json:"status_code"`
	IsSuccess  bool                  `json:"is_success"`
}

// Success renders a success envelope around already-encoded data.
// Live and cached responses both go through here so they serialize identically.
func Success(status int, message string, data json.RawMessage) ([]byte, error) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return json.Marshal(Envelope{
		Data:       data,
		Messages:   Messages{Message: message},
		StatusCode: status,
		IsSuccess:  true,
	})
}

// Failure renders the envelope for a typed error.
func Failure(e *apperror.Error) ([]byte, error) {
	var details []apperror.FieldError
	if len(e.Details) > 0 {
		details = e.Details
	}
	return json.Marshal(Envelope{
		Data:       json.RawMessage("null"),
		Errors:     details,
		Messages:   Messages{Message: e.Message, Code: e.Code},
		StatusCode: e.Status,
		IsSuccess:  false,
	})
}

// Write sends an encoded envelope.
func Write(c *fiber.Ctx, status int, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(status).Send(body)
}
