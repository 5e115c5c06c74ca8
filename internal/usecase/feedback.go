package usecase

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"onlearn-learner/internal/domain"
)

var feedbackValidator = newFeedbackValidator()

// messages shown to the learner, keyed by field and failed tag
var feedbackMessages = map[string]string{
	"message.required": "Comments are required.",
	"message.min":      "Comments must be at least 10 characters.",
	"rating.min":       "Please select a rating 1–5.",
	"rating.max":       "Please select a rating 1–5.",
}

func newFeedbackValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateFeedback trims the message and checks it before anything is sent.
func validateFeedback(input domain.FeedbackInput) (domain.FeedbackInput, error) {
	input.Message = strings.TrimSpace(input.Message)

	err := feedbackValidator.Struct(input)
	if err == nil {
		return input, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return input, err
	}

	var fields []domain.FieldError
	for _, fe := range verrs {
		msg, ok := feedbackMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		fields = append(fields, domain.FieldError{Field: fe.Field(), Message: msg})
	}
	return input, domain.NewValidationError(fields...)
}
