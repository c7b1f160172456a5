// Package bind centralizes struct validation for decoded inputs
package bind

import (
	"sync"

	perr "github.com/BCM-Neurosurgery/video-sync/internal/platform/errors"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

// Validator returns the process-wide validator instance
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
	})
	return v
}

// Struct validates s and converts failures into a platform validation error
func Struct(s any) error {
	if err := Validator().Struct(s); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "validation failed")
	}
	return nil
}
