// Package validation wraps go-playground/validator with the custom rules
// used by the product catalog and renders validation failures into the
// details map of a VALIDATION_ERROR.
package validation

import (
	"fmt"
	"math"
	"regexp"

	"github.com/go-playground/validator/v10"

	"prodcat/internal/apperrors"
	"prodcat/internal/models"
)

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// sku: alphanumeric plus hyphens and underscores.
	_ = v.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
		return skuPattern.MatchString(fl.Field().String())
	})

	// twodecimal: at most 2 decimal digits of precision.
	_ = v.RegisterValidation("twodecimal", func(fl validator.FieldLevel) bool {
		return HasTwoDecimalPrecision(fl.Field().Float())
	})

	return v
}

// HasTwoDecimalPrecision reports whether v*100 is an integer, within a small
// tolerance for float representation.
func HasTwoDecimalPrecision(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}

// Struct validates a struct by its validate tags and returns a typed
// VALIDATION_ERROR on failure.
func Struct(s any) *apperrors.AppError {
	if err := validate.Struct(s); err != nil {
		return apperrors.Validation("Validation failed", FormatErrors(err))
	}
	return nil
}

// FormatErrors converts a validator error into a field → message map.
func FormatErrors(err error) map[string]string {
	messages := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		messages["_"] = err.Error()
		return messages
	}
	for _, e := range validationErrors {
		messages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return messages
}

// Product runs the full invariant set against a complete product record,
// including the cross-field rule that a discount price must stay strictly
// below the regular price.
func Product(p *models.Product) *apperrors.AppError {
	if appErr := Struct(p); appErr != nil {
		return appErr
	}
	if p.DiscountPrice != nil && *p.DiscountPrice >= p.Price {
		return apperrors.Validation("Validation failed", map[string]string{
			"DiscountPrice": "Discount Price must be less than the price",
		})
	}
	return nil
}
