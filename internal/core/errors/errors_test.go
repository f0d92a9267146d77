package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "graph not found")
		if err.Error() != "[NOT_FOUND] graph not found" {
			t.Errorf("expected [NOT_FOUND] graph not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("disk full")
		err := Wrap(original, CodeInternal, "snapshot write failed")
		expected := "[INTERNAL_ERROR] snapshot write failed: disk full"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid entry point")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("sqlite busy")
		err := Wrap(original, CodeLocked, "repository locked")
		if !IsCode(err, CodeLocked) {
			t.Error("expected IsCode to return true for wrapped CodeLocked")
		}
	})

	t.Run("CodeOf", func(t *testing.T) {
		if CodeOf(errors.New("plain")) != CodeInternal {
			t.Error("expected plain errors to map to CodeInternal")
		}
		if CodeOf(New(CodeBudgetExceeded, "over budget")) != CodeBudgetExceeded {
			t.Error("expected CodeBudgetExceeded")
		}
	})
}
