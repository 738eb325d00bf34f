// Package validation provides the single validator engine shared by services and
// HTTP binding.
package validation

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
)

var Module = fx.Module("validation",
	fx.Provide(New),
	fx.Invoke(RegisterGinValidator),
)

// New returns a validator that reports JSON field names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// GinValidator lets gin binding run the shared engine on `validate` tags.
type GinValidator struct {
	validate *validator.Validate
}

var _ binding.StructValidator = (*GinValidator)(nil)

func (g *GinValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	return g.validate.Struct(obj)
}

func (g *GinValidator) Engine() any {
	return g.validate
}

// RegisterGinValidator installs the shared engine as gin's binding validator.
func RegisterGinValidator(v *validator.Validate) {
	binding.Validator = &GinValidator{validate: v}
}
