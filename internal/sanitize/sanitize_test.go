package sanitize

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/waypoint/pkg/domain"
)

func TestInput_SizeLimit(t *testing.T) {
	// Default Limit is 4096
	limit := 4096

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Input(strings.Repeat("a", tt.inputSize))
			if tt.wantErr != (err != nil) {
				t.Errorf("Input() size %d: wantErr=%v, got %v", tt.inputSize, tt.wantErr, err)
			}
		})
	}
}

func TestInput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "8")
	if _, err := Input("123456789"); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("expected ErrInputTooLarge, got %v", err)
	}
	t.Setenv(EnvMaxInputSize, "not-a-number")
	if _, err := Input("123456789"); err != nil {
		t.Errorf("invalid override should fall back to the default, got %v", err)
	}
}

func TestInput_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "Hello World", "Hello World"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
		{"Bell", "Ding\x07", "Ding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Input(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestInput_InvalidUTF8(t *testing.T) {
	if _, err := Input("bad\xff"); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestAnswer(t *testing.T) {
	got, err := Answer(domain.List(domain.String("a\x00"), domain.Number(2)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := domain.List(domain.String("a"), domain.Number(2))
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got, _ := Answer(domain.Bool(true)); !got.Equal(domain.Bool(true)) {
		t.Errorf("bool should pass through, got %v", got)
	}

	items := make([]domain.Value, MaxListItems+1)
	for i := range items {
		items[i] = domain.String("x")
	}
	if _, err := Answer(domain.List(items...)); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("expected ErrInputTooLarge for long list, got %v", err)
	}
}
