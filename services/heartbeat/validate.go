package heartbeat

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var licenseKeyPattern = regexp.MustCompile(`^[A-Z0-9]{5}(-[A-Z0-9]{5}){4}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("license_key", func(fl validator.FieldLevel) bool {
		return licenseKeyPattern.MatchString(fl.Field().String())
	})
	return v
}

// decodeRequest parses and validates the body, returning the first
// validation message on failure.
func decodeRequest(v *validator.Validate, body []byte) (Request, string) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return req, "Invalid request body"
	}

	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return req, validationMessage(verrs[0])
		}
		return req, "Invalid request body"
	}

	return req, ""
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "license_key":
		return fmt.Sprintf("%s must be in the format XXXXX-XXXXX-XXXXX-XXXXX-XXXXX", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
