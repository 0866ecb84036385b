package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeStorage, cause, "failed to download")

	if err.Code != ErrCodeStorage {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeStorage)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestErrorContext(t *testing.T) {
	err := New(ErrCodeSliceUnavailable, "no slice").WithChunk(2).WithLeaf(7).WithEdge("side")

	want := "SLICE_UNAVAILABLE: no slice (chunk 2, leaf 7, edge side)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if msg := UserMessage(err); msg != "no slice (chunk 2, leaf 7, edge side)" {
		t.Errorf("UserMessage() = %q", msg)
	}

	// Leaf zero is a real leaf and must be reported.
	err = New(ErrCodeSliceUnavailable, "no slice").WithLeaf(0)
	if err.Error() != "SLICE_UNAVAILABLE: no slice (leaf 0)" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeInvalidInput, "test"), ErrCodeInvalidInput, true},
		{"non-matching code", New(ErrCodeInvalidInput, "test"), ErrCodeNetwork, false},
		{"wrapped error", Wrap(ErrCodeNetwork, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeNetwork, true},
		{"fmt wrapped", fmt.Errorf("ctx: %w", New(ErrCodeInvalidChunkCount, "x")), ErrCodeInvalidChunkCount, true},
		{"non-Error type", errors.New("plain error"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		code Code
		want Category
	}{
		{ErrCodeInvalidDimensions, CategoryValidation},
		{ErrCodeInvalidChunkCount, CategoryValidation},
		{ErrCodeStorage, CategoryTransient},
		{ErrCodeRetriesExhausted, CategoryTransient},
		{ErrCodeSliceUnavailable, CategoryDegraded},
		{ErrCodeNonConvergence, CategoryNumeric},
		{ErrCodeJobNotFound, CategoryNotFound},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		if got := CategoryOf(tt.code); got != tt.want {
			t.Errorf("CategoryOf(%s) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestGetCodeAndCategory(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(ErrCodeInvalidPageCount, "zero"))
	if GetCode(err) != ErrCodeInvalidPageCount {
		t.Errorf("GetCode() = %v", GetCode(err))
	}
	if !IsValidation(err) {
		t.Error("IsValidation() = false, want true")
	}
	if GetCategory(errors.New("plain")) != CategoryInternal {
		t.Error("plain errors should be internal")
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("plain errors have no code")
	}
}

func TestUserMessagePlain(t *testing.T) {
	if msg := UserMessage(errors.New("boom")); msg != "boom" {
		t.Errorf("UserMessage() = %q, want %q", msg, "boom")
	}
}
