package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/shubhamforall/petstore-api/apperror"
)

// Body collects the raw request body as a field map. JSON numbers stay json.Number
// so integer checks see the literal the client sent.
func Body(c *fiber.Ctx) (map[string]any, error) {
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	switch {
	case strings.HasPrefix(ct, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, apperror.BadRequest("Invalid request body")
		}
		return flatten(form.Value), nil
	case strings.HasPrefix(ct, fiber.MIMEApplicationForm):
		out := make(map[string]any)
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			if _, ok := out[string(k)]; !ok {
				out[string(k)] = string(v)
			}
		})
		return out, nil
	}

	body := c.Body()
	out := make(map[string]any)
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, apperror.BadRequest("Invalid request body")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperror.BadRequest("Invalid request body")
	}
	return out, nil
}

func Query(c *fiber.Ctx) map[string]any {
	return stringMap(c.Queries())
}

func Params(c *fiber.Ctx) map[string]any {
	return stringMap(c.AllParams())
}

// Files returns the uploads sent under field or field[]; nil for non-multipart requests.
func Files(c *fiber.Ctx, field string) []*multipart.FileHeader {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	files := append([]*multipart.FileHeader{}, form.File[field]...)
	return append(files, form.File[field+"[]"]...)
}

func flatten(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func stringMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[strings.Clone(k)] = strings.Clone(v)
	}
	return out
}
