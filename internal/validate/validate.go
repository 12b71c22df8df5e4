package validate

import (
	"reflect"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once     sync.Once
	validate *validator.Validate

	mobilePattern = regexp.MustCompile(`^\d{10}$`)
)

// Get returns the shared validator. decimal.Decimal fields validate as float64, so tags such
// as gt=0 work on prices, and the "mobile" tag accepts exactly ten digits.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterCustomTypeFunc(DecimalValue, decimal.Decimal{})
		_ = validate.RegisterValidation("mobile", ValidateMobile)
	})
	return validate
}

func DecimalValue(v reflect.Value) interface{} {
	d, ok := v.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}

func ValidateMobile(fl validator.FieldLevel) bool {
	return mobilePattern.MatchString(fl.Field().String())
}
