package validation

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError is one violated field, in the shape API clients already parse:
// {"param":"email","msg":"...","value":"...","location":"body"}.
type FieldError struct {
	Param    string `json:"param"`
	Msg      string `json:"msg"`
	Value    any    `json:"value,omitempty"`
	Location string `json:"location"`
}

const LocationBody = "body"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	configure(v)
	return v
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("pwd", "min=8") // password minimum length
}

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers alias tags for common validations.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		configure(v)
	}
}

// Struct validates s (a struct or pointer to struct) and returns every violated
// field. A field's `msg` tag overrides the generated message; fields tagged
// `redact:"true"` never echo their value.
func Struct(s any) []FieldError {
	return FromError(validate.Struct(s), s)
}

// FromError converts binding/validation errors into field errors. s is the
// validated value and may be nil when err is a decoding error.
func FromError(err error, s any) []FieldError {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []FieldError{{Param: "payload", Msg: "invalid json", Location: LocationBody}}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		t := structType(s)
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			item := FieldError{Param: fe.Field(), Msg: formatFieldError(fe), Value: fe.Value(), Location: LocationBody}
			if t != nil {
				if sf, ok := t.FieldByName(fe.StructField()); ok {
					if m := sf.Tag.Get("msg"); m != "" {
						item.Msg = m
					}
					if sf.Tag.Get("redact") == "true" {
						item.Value = nil
					}
				}
			}
			out = append(out, item)
		}
		return out
	}

	// Fallback
	return []FieldError{{Param: "payload", Msg: "invalid payload", Location: LocationBody}}
}

func structType(s any) reflect.Type {
	if s == nil {
		return nil
	}
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "len":
		return "must be exactly " + param + " characters long"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "uuid":
		return "must be a valid UUID"
	case "pwd":
		return "min length 8"
	default:
		if param != "" {
			return "validation failed for '" + fe.Tag() + "' with parameter '" + param + "'"
		}
		return "validation failed for '" + fe.Tag() + "'"
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
