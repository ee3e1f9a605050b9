package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-playground/validator/v10"
)

var shortIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reservedIDs are top-level routes a custom short id must not shadow.
var reservedIDs = map[string]bool{
	"health":              true,
	"metrics":             true,
	"docs":                true,
	"openapi":             true,
	"schemas":             true,
	"dev":                 true,
	"shorten":             true,
	"register":            true,
	"verify-email":        true,
	"resend-verification": true,
	"login":               true,
}

// IsReservedID reports whether id collides with a built-in route.
func IsReservedID(id string) bool {
	return reservedIDs[strings.ToLower(id)]
}

// Validator checks request bodies and reports failures as huma 400s.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the short id rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("shortid", func(fl validator.FieldLevel) bool {
		return shortIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
		return !IsReservedID(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Body validates a request body struct. It returns nil or a huma 400 error.
func (v *Validator) Body(body any) error {
	err := v.validate.Struct(body)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return huma.Error400BadRequest("invalid request body", err)
	}

	details := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, &huma.ErrorDetail{
			Message:  fieldMessage(fe),
			Location: "body." + fe.Field(),
			Value:    fe.Value(),
		})
	}

	return huma.Error400BadRequest(summary(verrs), details...)
}

func summary(verrs validator.ValidationErrors) string {
	if len(verrs) == 1 {
		return fieldMessage(verrs[0])
	}

	return "validation failed"
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "shortid":
		return fmt.Sprintf("%s may only contain letters, digits, '_' and '-'", field)
	case "notreserved":
		return fmt.Sprintf("%s is reserved", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
