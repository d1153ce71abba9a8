package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/pkg/logger"
)

var registerOnce sync.Once

var domainValidations = map[string]validator.Func{
	"goalcategory": func(fl validator.FieldLevel) bool {
		return models.IsGoalCategory(fl.Field().String())
	},
	"difficulty": func(fl validator.FieldLevel) bool {
		return models.Difficulty(fl.Field().String()).Valid()
	},
	"privacy": func(fl validator.FieldLevel) bool {
		return models.Privacy(fl.Field().String()).Valid()
	},
}

func registerValidations(v *validator.Validate) error {
	for tag, fn := range domainValidations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// RegisterValidators installs the domain binding tags on gin's validator.
// Binding a tagged struct without them panics, so failure is fatal.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Fatal().Msg("Binding engine is not go-playground/validator")
			return
		}
		if err := registerValidations(v); err != nil {
			logger.Fatal().Err(err).Msg("Failed to register binding validators")
		}
	})
}
