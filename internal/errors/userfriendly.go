package errors

import (
	"fmt"
	"strings"
)

// UserFriendlyError is an error shown at the command line with an
// explanation and a suggested next step.
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var details string
	if e.Err != nil {
		details = e.Err.Error()
	}
	lines := []string{e.Message}
	for _, f := range [][2]string{
		{"Reason", e.Reason},
		{"Hint", e.Hint},
		{"Try", e.Try},
		{"Details", details},
	} {
		if f[1] != "" {
			lines = append(lines, "  "+f[0]+": "+f[1])
		}
	}
	return strings.Join(lines, "\n")
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapPlatformError wraps failures from the input/window backend.
func WrapPlatformError(err error, backend string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Input backend %q is not usable", backend),
		Reason:  extractPlatformReason(err),
		Hint:    "The x11 backend needs a running X server and the XTEST extension",
		Try:     "smiteclick run --backend robotgo, or export DISPLAY=:0",
		Err:     err,
	}
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Delete the file to regenerate defaults, or fix the reported field",
		Try:     fmt.Sprintf("smiteclick settings show --config %s", configPath),
		Err:     err,
	}
}

// WrapStorageError wraps database failures.
func WrapStorageError(err error, dbPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Storage error in %s", dbPath),
		Reason:  extractStorageReason(err),
		Hint:    "Profiles and session logs live in this SQLite file",
		Try:     "Check the path is writable, or pass --db to use another file",
		Err:     err,
	}
}

// WrapSettingError wraps a rejected settings change.
func WrapSettingError(err error, key string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Cannot set %s", key),
		Reason:  err.Error(),
		Try:     "smiteclick settings show",
		Err:     err,
	}
}

// reason maps an error message substring to a short explanation.
type reason struct {
	needles []string
	text    string
}

var platformReasons = []reason{
	{[]string{"DISPLAY", "connect to X"}, "No X display available"},
	{[]string{"XTEST", "xtest"}, "The X server does not support synthetic input"},
	{[]string{"permission"}, "Permission denied while opening input devices"},
}

var storageReasons = []reason{
	{[]string{"locked", "busy"}, "Database is locked by another process"},
	{[]string{"unable to open"}, "Database file could not be opened"},
	{[]string{"readonly", "read-only"}, "Database is read-only"},
}

func matchReason(err error, table []reason, fallback string) string {
	msg := err.Error()
	for _, r := range table {
		for _, n := range r.needles {
			if strings.Contains(msg, n) {
				return r.text
			}
		}
	}
	return fallback
}

func extractPlatformReason(err error) string {
	return matchReason(err, platformReasons, "Backend initialization failed")
}

func extractStorageReason(err error) string {
	return matchReason(err, storageReasons, "Database operation failed")
}
