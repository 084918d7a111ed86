package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserFriendlyError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      UserFriendlyError
		contains []string
	}{
		{
			name:     "message only",
			err:      UserFriendlyError{Message: "something broke"},
			contains: []string{"something broke"},
		},
		{
			name: "all fields",
			err: UserFriendlyError{
				Message: "backend failed",
				Reason:  "no display",
				Hint:    "start X",
				Try:     "export DISPLAY=:0",
				Err:     fmt.Errorf("dial unix: no such file"),
			},
			contains: []string{"backend failed", "Reason: no display", "Hint: start X", "Try: export DISPLAY=:0", "Details: dial unix: no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("Error() = %q, want to contain %q", msg, s)
				}
			}
		})
	}
}

func TestUserFriendlyError_ErrorOmitsEmptyFields(t *testing.T) {
	msg := UserFriendlyError{Message: "msg"}.Error()
	if strings.Contains(msg, "Reason:") || strings.Contains(msg, "Hint:") || strings.Contains(msg, "Try:") || strings.Contains(msg, "Details:") {
		t.Errorf("Error() = %q, should not contain empty fields", msg)
	}
}

func TestUserFriendlyError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("root cause")
	err := UserFriendlyError{Message: "wrapper", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Unwrap should return the inner error")
	}

	var nilErr UserFriendlyError
	if nilErr.Unwrap() != nil {
		t.Error("Unwrap on nil Err should return nil")
	}
}

func TestWrapNil(t *testing.T) {
	if WrapPlatformError(nil, "x11") != nil {
		t.Error("WrapPlatformError(nil) should be nil")
	}
	if WrapConfigError(nil, "c.yaml") != nil {
		t.Error("WrapConfigError(nil) should be nil")
	}
	if WrapStorageError(nil, "db") != nil {
		t.Error("WrapStorageError(nil) should be nil")
	}
	if WrapSettingError(nil, "cps") != nil {
		t.Error("WrapSettingError(nil) should be nil")
	}
}

func TestWrapPlatformError_Reason(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"display", fmt.Errorf("connect to X server: DISPLAY not set"), "No X display available"},
		{"xtest", fmt.Errorf("xtest init: extension missing"), "synthetic input"},
		{"other", fmt.Errorf("weird"), "Backend initialization failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapPlatformError(tt.err, "x11")
			var ufe UserFriendlyError
			if !errors.As(err, &ufe) {
				t.Fatalf("expected UserFriendlyError, got %T", err)
			}
			if !strings.Contains(ufe.Reason, tt.reason) {
				t.Errorf("Reason = %q, want to contain %q", ufe.Reason, tt.reason)
			}
			if !errors.Is(err, tt.err) {
				t.Error("wrapped error should unwrap to the cause")
			}
		})
	}
}

func TestWrapStorageError_Reason(t *testing.T) {
	err := WrapStorageError(fmt.Errorf("database is locked"), "smiteclick.db")
	if !strings.Contains(err.Error(), "locked by another process") {
		t.Errorf("Error() = %q, want lock reason", err.Error())
	}
}

func TestWrapSettingError(t *testing.T) {
	cause := fmt.Errorf("invalid setting: cps must be >= 0")
	err := WrapSettingError(cause, "cps")
	if !strings.Contains(err.Error(), "Cannot set cps") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("should unwrap to cause")
	}
}
