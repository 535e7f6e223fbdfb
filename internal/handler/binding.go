package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wipay/subscriber-api/pkg/momo"
)

// RegisterValidators installs custom binding rules. "msisdn" accepts any
// number that normalizes to a recognized mobile-money MSISDN.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return momo.ValidateNumber(fl.Field().String())
	})
}
