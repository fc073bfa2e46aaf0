package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/utils"
)

// Source names where a schema's input comes from.
type Source string

const (
	SourceParams Source = "params"
	SourceQuery  Source = "query"
	SourceBody   Source = "body"
)

// Validator decodes raw request input into schema structs and checks them.
// Schemas declare fields with `json` names, `validate` rules and an optional `default`.
// Strings are trimmed unless tagged `trim:"false"`.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(fieldName)
	return &Validator{validate: v}
}

// Validate fills dst (a pointer to a schema struct) from raw and returns a
// Validation error listing every violation, one per field.
// Keys of raw that dst does not declare are ignored.
func (v *Validator) Validate(raw map[string]any, dst any) error {
	return v.ValidateWith(raw, dst, nil)
}

// ValidateWith is Validate plus extra findings (upload checks) merged into the same list.
func (v *Validator) ValidateWith(raw map[string]any, dst any, extra []apperror.FieldError) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return apperror.Internal(fmt.Errorf("validation target %T is not a pointer to struct", dst))
	}
	s := rv.Elem()
	t := s.Type()

	fields := make([]string, 0, t.NumField())
	coercion := make(map[string]apperror.FieldError)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := fieldName(sf)
		if name == "" || !sf.IsExported() {
			continue
		}
		fields = append(fields, name)

		val, present := lookup(raw, name)
		if !present {
			def, ok := sf.Tag.Lookup("default")
			if !ok {
				continue
			}
			val = def
		}
		if err := assign(s.Field(i), val); err != nil {
			coercion[name] = apperror.FieldError{Field: name, Code: err.code, Message: name + " " + err.msg}
		}
	}

	utils.NormalizeDTO(dst)

	checks := make(map[string]apperror.FieldError)
	if err := v.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return apperror.Internal(err)
		}
		for _, fe := range ve {
			if _, seen := checks[fe.Field()]; seen {
				continue
			}
			checks[fe.Field()] = apperror.FieldError{Field: fe.Field(), Code: fe.Tag(), Message: message(fe)}
		}
	}

	var out []apperror.FieldError
	for _, name := range fields {
		if fe, ok := coercion[name]; ok {
			out = append(out, fe)
		} else if fe, ok := checks[name]; ok {
			out = append(out, fe)
		}
	}
	out = append(out, extra...)
	if len(out) > 0 {
		return apperror.Validation(out)
	}
	return nil
}

func fieldName(sf reflect.StructField) string {
	name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// lookup treats missing keys, JSON null and blank strings as absent.
func lookup(raw map[string]any, name string) (any, bool) {
	val, ok := raw[name]
	if !ok || val == nil {
		return nil, false
	}
	switch x := val.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, false
		}
	case []string:
		if len(x) == 0 {
			return nil, false
		}
		return lookup(map[string]any{name: x[0]}, name)
	}
	return val, true
}

type coercionError struct {
	code string
	msg  string
}

func assign(field reflect.Value, val any) *coercionError {
	target := field
	if field.Kind() == reflect.Ptr {
		target = reflect.New(field.Type().Elem()).Elem()
	}

	switch target.Kind() {
	case reflect.String:
		s, ok := val.(string)
		if !ok {
			return &coercionError{"string", "must be a string"}
		}
		target.SetString(strings.Clone(s))
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, ok := toInt(val)
		if !ok {
			return &coercionError{"int", "must be an integer"}
		}
		target.SetInt(n)
	case reflect.Bool:
		b, ok := toBool(val)
		if !ok {
			return &coercionError{"bool", "must be a boolean"}
		}
		target.SetBool(b)
	default:
		return &coercionError{"type", "has an unsupported type"}
	}

	if field.Kind() == reflect.Ptr {
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(target)
		field.Set(ptr)
	}
	return nil
}

func toInt(val any) (int64, bool) {
	switch x := val.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, false
		}
		return int64(f), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

func toBool(val any) (bool, bool) {
	switch x := val.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	numeric := fe.Kind() != reflect.String
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min":
		if numeric {
			return fmt.Sprintf("%s must not be less than %s", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		if numeric {
			return fmt.Sprintf("%s must not be greater than %s", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "email":
		return name + " must be a valid email"
	case "uuid", "uuid4":
		return name + " must be a valid UUID"
	case "e164":
		return name + " must be a valid phone number"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.Join(strings.Fields(fe.Param()), ", "))
	}
	return name + " is invalid"
}
