package login

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/verification"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "purpose", func(fl validator.FieldLevel) bool {
		return verification.Purpose(fl.Field().String()).Valid()
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tag, err))
	}
}

// Validate checks a request struct and, when it carries an identifier, that
// the identifier matches its kind. Failures are ErrValidation.
func Validate(req any) error {
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}

	var identifier string
	var kind verification.Kind
	switch r := req.(type) {
	case CodeRequest:
		identifier, kind = r.Identifier, r.Kind
	case *CodeRequest:
		identifier, kind = r.Identifier, r.Kind
	case VerifyRequest:
		identifier, kind = r.Identifier, r.Kind
	case *VerifyRequest:
		identifier, kind = r.Identifier, r.Kind
	case Request:
		identifier, kind = r.Identifier, r.Kind
	case *Request:
		identifier, kind = r.Identifier, r.Kind
	default:
		return nil
	}
	return ValidateIdentifier(identifier, kind)
}

// ValidateIdentifier checks the normalized form of identifier.
func ValidateIdentifier(identifier string, kind verification.Kind) error {
	normalized := verification.Normalize(identifier, kind)
	switch kind {
	case verification.KindPhone:
		if validate.Var(normalized, "required,phone") != nil {
			return errors.New(errors.ErrValidation, "phone number must be in valid international format")
		}
	case verification.KindEmail:
		if validate.Var(normalized, "required,email") != nil {
			return errors.New(errors.ErrValidation, "email must be a valid email address")
		}
	default:
		return errors.New(errors.ErrValidation, "identifierType must be one of phone, email")
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(errors.ErrValidation, "invalid request", err)
	}
	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "purpose":
		msg = fmt.Sprintf("%s is not a supported purpose", fe.Field())
	case "max", "min", "len":
		msg = fmt.Sprintf("%s has an invalid length", fe.Field())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return errors.Wrap(errors.ErrValidation, msg, err)
}
