package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"
)

// Validator wraps a go-playground validator and the messages of custom rules.
type Validator struct {
	validate *playground.Validate

	mu       sync.RWMutex
	messages map[string]string
}

// New returns a validator that reports fields by their json names.
func New() *Validator {
	v := playground.New(playground.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v, messages: map[string]string{}}
}

// RegisterString adds a rule for string fields. message is shown when it fails.
func (v *Validator) RegisterString(tag string, ok func(string) bool, message string) error {
	err := v.validate.RegisterValidation(tag, func(fl playground.FieldLevel) bool {
		return ok(fl.Field().String())
	})
	if err != nil {
		return errors.Join(ErrRuleNotRegistered, err)
	}
	v.mu.Lock()
	v.messages[tag] = message
	v.mu.Unlock()
	return nil
}

// Struct validates s and returns ValidationErrors, or nil.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var invalid *playground.InvalidValidationError
	if errors.As(err, &invalid) {
		return errors.Join(ErrNotStruct, err)
	}
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Message: v.message(fe),
		})
	}
	return out
}

// fieldPath drops the struct name from the namespace, keeping indexes for dive rules.
func fieldPath(fe playground.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

func (v *Validator) message(fe playground.FieldError) string {
	v.mu.RLock()
	custom, ok := v.messages[fe.Tag()]
	v.mu.RUnlock()
	if ok {
		return custom
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "unique":
		return "must not contain duplicates"
	default:
		return fmt.Sprintf("failed the %s rule", fe.Tag())
	}
}
