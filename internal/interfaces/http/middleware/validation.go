package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/marketship/backend/internal/domain/shipping"
)

var postalCodeRe = regexp.MustCompile(`^[0-9]{5}$`)

// SetupValidator registers custom binding validations with gin's validator
// engine. Call once before routes are served.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Five-digit Indonesian postal code
	_ = v.RegisterValidation("postal_id", func(fl validator.FieldLevel) bool {
		return postalCodeRe.MatchString(fl.Field().String())
	})

	// Checkout service token, e.g. "ms-jne-reg" or the mixed-cheapest token
	_ = v.RegisterValidation("service_token", func(fl validator.FieldLevel) bool {
		_, _, _, err := shipping.ParseServiceToken(fl.Field().String())
		return err == nil
	})
}
