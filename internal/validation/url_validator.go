package validation

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("resource_url", validateResourceURL)
}

// ValidateURL checks that a string is a fetchable resource location: an
// http or https URL with a host. Loopback and private hosts are accepted;
// descriptors routinely point at intranet mirrors and local test servers.
func ValidateURL(raw string) error {
	if err := validate.Var(raw, "required,resource_url"); err != nil {
		return fmt.Errorf("invalid resource URL %q: %w", raw, err)
	}
	return nil
}

func validateResourceURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
