// Package validator centralizes struct validation and the takeability checks
// applied to a test definition before a session may start.
package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/pKa1/eg2/internal/errors"
	"github.com/pKa1/eg2/internal/models"
)

var (
	// ErrNotPublished means the definition's status forbids taking it.
	ErrNotPublished = errors.New("test is not published")
	// ErrNoQuestions means the definition has nothing to answer.
	ErrNoQuestions = errors.New("test has no questions")
)

type Validator struct {
	structValidator *validator.Validate
}

// New creates a validator with the engine's custom rules registered.
func New() *Validator {
	v := validator.New()

	v.RegisterValidation("question_type", validateQuestionType)
	v.RegisterValidation("test_status", validateTestStatus)

	// Report JSON field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{structValidator: v}
}

// Validate runs struct-tag validation and converts failures to the shared
// ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// CheckTakeable verifies a loaded definition may actually be taken: it must
// be structurally valid, published, and contain at least one question.
func (v *Validator) CheckTakeable(def *models.TestDefinition) error {
	if err := v.Validate(def); err != nil {
		return err
	}
	if def.Status != models.StatusPublished {
		return ErrNotPublished
	}
	if len(def.Questions) == 0 {
		return ErrNoQuestions
	}
	return nil
}

func validateQuestionType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, qt := range models.AllQuestionTypes {
		if string(qt) == value {
			return true
		}
	}
	return false
}

func validateTestStatus(fl validator.FieldLevel) bool {
	switch models.TestStatus(fl.Field().String()) {
	case models.StatusDraft, models.StatusPublished, models.StatusArchived:
		return true
	}
	return false
}
