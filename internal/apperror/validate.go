package apperror

import (
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// QuarterHourValidator accepts hour values that are a whole multiple of 0.25.
var QuarterHourValidator = func(fl validator.FieldLevel) bool {
	hours := fl.Field().Float()
	quarters := hours * 4
	return math.Abs(quarters-math.Round(quarters)) < 1e-9
}

// Validator returns the shared validator instance with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		if err := validate.RegisterValidation("quarterhour", QuarterHourValidator); err != nil {
			panic(err)
		}
	})
	return validate
}

// ValidateStruct runs struct validation and returns a ValidationError on failure.
func ValidateStruct(s any) error {
	if err := Validator().Struct(s); err != nil {
		return FromValidator(err)
	}
	return nil
}
