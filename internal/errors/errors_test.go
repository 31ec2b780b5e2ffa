package errors

import (
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, CodeOK},
		{ErrInvalidConfig, CodeInvalidConfig},
		{NewMissingField("data_dir"), CodeInvalidConfig},
		{fmt.Errorf("parse: %w", ErrInvalidToken), CodeInvalidConfig},
		{Wrap(ErrArityMismatch, "update"), CodeArityMismatch},
		{ErrUnknownTransform, CodeUnknownXform},
		{NewCorrupt("bad magic %x", 1), CodeCorruptState},
		{NewNotFound("database", "a.rrdb"), CodeNotFound},
		{Wrapf(ErrLockTimeout, "after %s", "5s"), CodeLockTimeout},
		{NewInvalidValue("value", "x", "not a number"), CodeInvalidArgument},
		{ErrUnknownCommand, CodeInvalidArgument},
		{ErrCommandTooLong, CodeInvalidArgument},
		{New("disk on fire"), CodeInternal},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d (%s), want %d (%s)",
				tt.err, got, CodeName(got), tt.want, CodeName(tt.want))
		}
	}
}

func TestCodeName(t *testing.T) {
	if CodeName(CodeNotFound) == CodeName(CodeLockTimeout) {
		t.Error("codes should have distinct names")
	}
	if CodeName(99) != "Code(99)" {
		t.Errorf("unexpected name %q", CodeName(99))
	}
}

func TestCategories(t *testing.T) {
	if !IsConfiguration(NewValidation("setcount", "0")) {
		t.Error("validation error should be a configuration error")
	}
	if !IsRequest(ErrArityMismatch) || IsRequest(ErrCorruptState) {
		t.Error("unexpected request classification")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil || Wrapf(nil, "%d", 1) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	if v.Err() != nil {
		t.Fatal("empty collector should report no error")
	}

	v.AddField("setcount", "must be at least 1")
	v.Add(NewMissingField("samplecount"))
	v.Add(nil)

	err := v.Err()
	if err == nil || len(v.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", v.Errors)
	}
	if !Is(err, ErrInvalidConfig) || !Is(err, ErrMissingField) {
		t.Errorf("collector should unwrap to both sentinels: %v", err)
	}
	if ExitCode(err) != CodeInvalidConfig {
		t.Errorf("unexpected exit code %d", ExitCode(err))
	}

	single := NewValidationErrors()
	single.AddField("a", "b")
	if single.Error() != NewValidation("a", "b").Error() {
		t.Errorf("single error message %q", single.Error())
	}
}
