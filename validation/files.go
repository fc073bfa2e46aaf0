package validation

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/shubhamforall/petstore-api/apperror"
)

// FileRule bounds the uploads accepted under one multipart field.
type FileRule struct {
	Field      string
	MaxFiles   int
	MaxBytes   int64
	ImagesOnly bool
}

// Check reports one finding for too many files and at most one per offending file.
func (r FileRule) Check(files []*multipart.FileHeader) []apperror.FieldError {
	var out []apperror.FieldError
	if r.MaxFiles > 0 && len(files) > r.MaxFiles {
		out = append(out, apperror.FieldError{
			Field:   r.Field,
			Code:    "max_files",
			Message: fmt.Sprintf("%s accepts at most %d files", r.Field, r.MaxFiles),
		})
	}
	for i, fh := range files {
		field := fmt.Sprintf("%s[%d]", r.Field, i)
		if r.MaxBytes > 0 && fh.Size > r.MaxBytes {
			out = append(out, apperror.FieldError{
				Field:   field,
				Code:    "max_size",
				Message: fmt.Sprintf("%s must not be larger than %d bytes", field, r.MaxBytes),
			})
			continue
		}
		if !r.ImagesOnly {
			continue
		}
		kind, err := sniff(fh)
		if err != nil || !strings.HasPrefix(kind, "image/") {
			out = append(out, apperror.FieldError{
				Field:   field,
				Code:    "image",
				Message: field + " must be an image",
			})
		}
	}
	return out
}

func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	m, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}
