package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type progressInput struct {
	Progress int    `validate:"min=0,max=100"`
	Email    string `validate:"required,email"`
	Status   string `validate:"oneof=pending completed"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(progressInput{Progress: 120, Email: "", Status: "done"})

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "Progress must be at most 100")
	assert.Contains(t, msg, "Email is required")
	assert.Contains(t, msg, "Status must be one of: pending completed")
}

func TestFormatValidationError_PlainError(t *testing.T) {
	assert.Equal(t, "boom", FormatValidationError(errors.New("boom")))
}
