// Package local holds the client-side registries: brew records, bean
// inventory, devices and the login session. Everything here reads and
// writes through a store.Store owned by the current user.
package local

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
)

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so errors match what clients send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRecord checks the fields a record must have before it is saved or
// published. The first failing field is reported as an
// apperror.ValidationFailed carrying that field's JSON name.
func ValidateRecord(r model.BrewRecord) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Brand = strings.TrimSpace(r.Brand)
	r.RoastLevel = strings.TrimSpace(r.RoastLevel)
	return check(r)
}

// ValidateBean checks an inventory bean.
func ValidateBean(b model.InventoryBean) error {
	b.Name = strings.TrimSpace(b.Name)
	return check(b)
}

// ValidateDevice checks a device.
func ValidateDevice(d model.Device) error {
	d.Name = strings.TrimSpace(d.Name)
	return check(d)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("local: validating %T: %w", v, err)
	}

	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
