package timeutil

import (
	"testing"
	"time"
)

func TestNow_AlwaysUTC(t *testing.T) {
	now := Now()

	if now.Location() != time.UTC {
		t.Errorf("Now() returned non-UTC timezone: %v", now.Location())
	}
}

func TestStartOfDay(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "midnight UTC",
			input:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			expected: "2026-03-15 00:00:00 +0000 UTC",
		},
		{
			name:     "noon UTC",
			input:    time.Date(2026, 3, 15, 12, 30, 45, 0, time.UTC),
			expected: "2026-03-15 00:00:00 +0000 UTC",
		},
		{
			name:     "non-UTC input converts first",
			input:    time.Date(2026, 3, 15, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)),
			expected: "2026-03-16 00:00:00 +0000 UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StartOfDay(tt.input)

			if result.String() != tt.expected {
				t.Errorf("StartOfDay() = %v, want %v", result, tt.expected)
			}

			if result.Location() != time.UTC {
				t.Errorf("StartOfDay() returned non-UTC: %v", result.Location())
			}
		})
	}
}

func TestEndOfDay(t *testing.T) {
	result := EndOfDay(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	expected := "2026-03-15 23:59:59.999999999 +0000 UTC"

	if result.String() != expected {
		t.Errorf("EndOfDay() = %v, want %v", result, expected)
	}
}

func TestStartOfISOWeek(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{
			name:     "wednesday goes back to monday",
			input:    time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC),
			expected: "2026-03-16 00:00:00 +0000 UTC",
		},
		{
			name:     "monday stays put",
			input:    time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
			expected: "2026-03-16 00:00:00 +0000 UTC",
		},
		{
			name:     "sunday belongs to the preceding monday",
			input:    time.Date(2026, 3, 22, 10, 0, 0, 0, time.UTC),
			expected: "2026-03-16 00:00:00 +0000 UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StartOfISOWeek(tt.input)

			if result.String() != tt.expected {
				t.Errorf("StartOfISOWeek() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestStartOfMonth(t *testing.T) {
	result := StartOfMonth(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	expected := "2026-03-01 00:00:00 +0000 UTC"

	if result.String() != expected {
		t.Errorf("StartOfMonth() = %v, want %v", result, expected)
	}
}

func TestParseDate(t *testing.T) {
	result, err := ParseDate(time.DateOnly, "2026-03-15")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if result.String() != "2026-03-15 00:00:00 +0000 UTC" {
		t.Errorf("ParseDate() = %v", result)
	}

	if _, err := ParseDate(time.DateOnly, "not-a-date"); err == nil {
		t.Error("ParseDate() expected error for malformed input")
	}
}
