package validators

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// New returns a validator with the custom tags tnctl uses registered
func New() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterValidation("nospaces", NoSpaces)
	v.RegisterValidation("semver", IsSemver)

	return v
}

// IsSemver checks that a string field holds a strict semantic version (1.2.3, 1.2.3-rc.1)
func IsSemver(fl validator.FieldLevel) bool {
	_, err := semver.StrictNewVersion(fl.Field().String())
	return err == nil
}

func NoSpaces(fl validator.FieldLevel) bool {
	return !strings.Contains(fl.Field().String(), " ")
}
