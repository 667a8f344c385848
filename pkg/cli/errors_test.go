package cli

import (
	"errors"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "--severity",
		Message: "unknown level \"loud\"",
	}

	expected := "config error in --severity: unknown level \"loud\""
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("field", "message")

	if err.Field != "field" {
		t.Errorf("Field = %q, want %q", err.Field, "field")
	}
	if err.Message != "message" {
		t.Errorf("Message = %q, want %q", err.Message, "message")
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("check", underlyingErr)

	expected := "command check failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestFindingsError(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{count: 1, want: "1 problem found"},
		{count: 3, want: "3 problems found"},
	}

	for _, tt := range tests {
		err := &FindingsError{Count: tt.count}
		if err.Error() != tt.want {
			t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
		}
	}

	var wrapped error = NewCommandError("check", &FindingsError{Count: 2})
	var findings *FindingsError
	if !errors.As(wrapped, &findings) {
		t.Fatal("errors.As() should find FindingsError through CommandError")
	}
	if findings.Count != 2 {
		t.Errorf("Count = %d, want 2", findings.Count)
	}
}
