package catalog

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockdesk/internal/shared"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// check maps validator failures onto the catalog error kinds: a missing
// required field is a constraint violation, anything else is malformed input.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.Validationf("%v", err)
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return shared.Constraintf("%s is required", fe.Field())
		}
	}
	fe := fieldErrs[0]
	if fe.Param() != "" {
		return shared.Validationf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return shared.Validationf("%s must satisfy %s", fe.Field(), fe.Tag())
}

func (s *Service) validateInput(in ProductInput) error {
	return check(in)
}

func (s *Service) validatePatch(p ProductPatch) error {
	if p.Name != nil && *p.Name == "" {
		return shared.Constraintf("name is required")
	}
	if p.SKU != nil && *p.SKU == "" {
		return shared.Constraintf("sku is required")
	}
	return check(p)
}

func validateName(kind, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", shared.Constraintf("%s name is required", kind)
	}
	return trimmed, nil
}
