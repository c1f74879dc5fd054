// Package sanitize cleans answers arriving from untrusted transports
// (HTTP, MCP, the terminal) before they reach the engine.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/waypoint/pkg/domain"
)

var (
	// DefaultMaxInputSize is 4KB (conservative default)
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "WAYPOINT_MAX_INPUT_SIZE"
	// MaxListItems bounds multi choice answers.
	MaxListItems = 64
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Input cleans a string by enforcing the size limit, validating UTF-8,
// and stripping control characters other than newline, tab and carriage return.
func Input(input string) (string, error) {
	limit := maxInputSize()
	if len(input) > limit {
		// Rejected rather than truncated so the stored answer is what the user sent.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// Answer applies Input to every string inside v. Numbers, booleans and null
// pass through untouched.
func Answer(v domain.Value) (domain.Value, error) {
	switch v.Kind() {
	case domain.KindString:
		s, _ := v.AsString()
		clean, err := Input(s)
		if err != nil {
			return domain.Null(), err
		}
		return domain.String(clean), nil
	case domain.KindList:
		items := v.Items()
		if len(items) > MaxListItems {
			return domain.Null(), fmt.Errorf("%w: %d items, limit=%d", ErrInputTooLarge, len(items), MaxListItems)
		}
		for i, item := range items {
			clean, err := Answer(item)
			if err != nil {
				return domain.Null(), fmt.Errorf("element %d: %w", i, err)
			}
			items[i] = clean
		}
		return domain.List(items...), nil
	}
	return v, nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
