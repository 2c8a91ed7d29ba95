package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// Errors maps a JSON field name to its validation message.
type Errors map[string]string

// Error implements the error interface.
func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation error"
	}
	b, err := json.Marshal(map[string]string(e))
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Validator validates request structs using `validate` tags and reports
// failures keyed by their `json` field names.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New constructs a Validator with English messages.
func New() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return nil, err
	}

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	v := &Validator{validate: validate, translator: enTrans}
	if err := v.RegisterMessage("notblank", "{0} must not be blank"); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate returns Errors when data fails validation.
func (v *Validator) Validate(data any) error {
	if err := v.validate.Struct(data); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		out := make(Errors, len(fieldErrs))
		for _, fe := range fieldErrs {
			out[fe.Field()] = fe.Translate(v.translator)
		}
		return out
	}
	return nil
}

// RegisterMessage overrides the message used for tag, e.g. to make a
// time comparison read naturally. {0} is the field name.
func (v *Validator) RegisterMessage(tag, message string) error {
	return v.validate.RegisterTranslation(tag, v.translator,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return t
		},
	)
}
