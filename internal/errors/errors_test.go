package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"without cause", &AppError{Code: ErrCodeNotFound, Message: "tenant not found"}, "tenant not found"},
		{
			"with cause",
			&AppError{Code: ErrCodeInternal, Message: "load board", Cause: errors.New("conn reset")},
			"load board: conn reset",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstructorsAndPredicates(t *testing.T) {
	if !IsNotFound(NotFoundf("order %s", "o1")) {
		t.Error("NotFoundf should be NotFound")
	}
	if got := NotFoundf("order %s", "o1").Message; got != "order o1" {
		t.Errorf("message = %q", got)
	}
	if !IsConflict(Conflictf("moved")) {
		t.Error("Conflictf should be Conflict")
	}
	if !IsValidation(Validationf("bad")) {
		t.Error("Validationf should be Validation")
	}
	if !IsForbidden(Forbidden("no")) {
		t.Error("Forbidden should be Forbidden")
	}
	if GetCode(Unauthorized("login")) != ErrCodeUnauthorized {
		t.Error("Unauthorized code mismatch")
	}
	if GetField(ValidationField("to", "unknown column")) != "to" {
		t.Error("field not preserved")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("plain errors have no code")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	cause := errors.New("root")
	err := Wrapf(cause, ErrCodeInternal, "step %d", 2)
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
	if err.Message != "step 2" {
		t.Errorf("message = %q", err.Message)
	}

	outer := fmt.Errorf("handler: %w", err)
	if GetCode(outer) != ErrCodeInternal {
		t.Error("code should be found through wrapping")
	}
}

func TestGetMessage(t *testing.T) {
	err := fmt.Errorf("kanban: %w", Wrap(errors.New("row moved"), ErrCodeConflict, "order changed"))
	if got := GetMessage(err); got != "order changed" {
		t.Errorf("GetMessage = %q", got)
	}
	if got := GetMessage(errors.New("plain")); got != "plain" {
		t.Errorf("GetMessage(plain) = %q", got)
	}
	if GetMessage(nil) != "" {
		t.Error("GetMessage(nil) should be empty")
	}
}
