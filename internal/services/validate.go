package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskhive/apiserver/internal/apperrors"
)

const (
	maxTodoTitleLen       = 255
	maxTodoDescriptionLen = 1000
	maxProjectNameLen     = 100
	maxProjectDescLen     = 500
	minPasswordLen        = 8
)

func validationError(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, apperrors.ErrValidation)...)
}

// containsScript is the naive block-list check applied to every free-form
// text field before it is stored.
func containsScript(value string) bool {
	return strings.Contains(strings.ToLower(value), "<script>")
}

func validateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return validationError("%s must not be blank", field)
	}
	if utf8.RuneCountInString(value) > max {
		return validationError("%s must not exceed %d characters", field, max)
	}
	if containsScript(value) {
		return validationError("%s contains disallowed markup", field)
	}
	return nil
}

func validateOptionalText(field, value string, max int) error {
	if value == "" {
		return nil
	}
	if utf8.RuneCountInString(value) > max {
		return validationError("%s must not exceed %d characters", field, max)
	}
	if containsScript(value) {
		return validationError("%s contains disallowed markup", field)
	}
	return nil
}

func validateDueDate(due *time.Time) error {
	if due != nil && !due.After(time.Now()) {
		return validationError("due date must be in the future")
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return validationError("email must not be blank")
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return validationError("email %q is not a valid address", email)
	}
	return nil
}

func validateID(field string, id int64) error {
	if id < 1 {
		return validationError("%s must be positive", field)
	}
	return nil
}
