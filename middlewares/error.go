package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/response"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
// It is the only place where a failed request gets its body.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		ae := apperror.From(err)
		if ae.Kind == apperror.KindInternal {
			log.WithError(err).WithFields(logrus.Fields{
				"method":     c.Method(),
				"path":       c.Path(),
				"request_id": requestID(c),
			}).Error("internal error")
		}

		body, merr := response.Failure(ae)
		if merr != nil {
			log.WithError(merr).Error("render error envelope")
			return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
		}
		return response.Write(c, ae.Status, body)
	}
}
