// AngelaMos | 2026
// validation_test.go

package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email           string   `validate:"required,email"`
	Password        string   `validate:"required,min=8"`
	ConfirmPassword string   `validate:"eqfield=Password"`
	Count           int      `validate:"min=1,max=50"`
	PdfID           string   `json:"pdf_id" validate:"omitempty,uuid"`
	Tags            []string `validate:"max=2"`
	Role            string   `validate:"omitempty,oneof=admin user"`
}

func TestFormatValidationError(t *testing.T) {
	v := NewValidator()

	err := v.Struct(signup{
		Email:           "not-an-email",
		Password:        "short",
		ConfirmPassword: "other",
		Count:           51,
		PdfID:           "abc",
		Tags:            []string{"a", "b", "c"},
		Role:            "root",
	})
	require.Error(t, err)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "email must be a valid email address")
	assert.Contains(t, msg, "password must be at least 8 characters")
	assert.Contains(t, msg, "passwords do not match")
	assert.Contains(t, msg, "count must be at most 50")
	assert.Contains(t, msg, "pdf_id must be a valid UUID")
	assert.Contains(t, msg, "tags must be at most 2 items")
	assert.Contains(t, msg, "role must be one of: admin user")
}

func TestFormatValidationErrorNonValidator(t *testing.T) {
	assert.Equal(t, "invalid request", FormatValidationError(errors.New("boom")))
}

func TestFieldNameFallsBackWithoutJSONTag(t *testing.T) {
	type req struct {
		NewPassword string `validate:"required"`
	}
	msg := FormatValidationError(NewValidator().Struct(req{}))
	assert.Equal(t, "new_password is required", msg)
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "new_password", toSnake("NewPassword"))
	assert.Equal(t, "email", toSnake("Email"))
}
