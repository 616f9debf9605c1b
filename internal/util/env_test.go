package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"ON", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("HALLBOOK_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("HALLBOOK_TEST_BOOL", tt.def); got != tt.expected {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected int
	}{
		{"", 7},
		{"3", 3},
		{" 12 ", 12},
		{"x", 7},
	}
	for _, tt := range tests {
		t.Setenv("HALLBOOK_TEST_INT", tt.value)
		if got := ParseIntEnv("HALLBOOK_TEST_INT", 7); got != tt.expected {
			t.Errorf("ParseIntEnv(%q) = %d, want %d", tt.value, got, tt.expected)
		}
	}
}

func TestParseFloatEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected float64
	}{
		{"", 10},
		{"2.5", 2.5},
		{"0", 0},
		{"-1", 10},
		{"fast", 10},
	}
	for _, tt := range tests {
		t.Setenv("HALLBOOK_TEST_FLOAT", tt.value)
		if got := ParseFloatEnv("HALLBOOK_TEST_FLOAT", 10); got != tt.expected {
			t.Errorf("ParseFloatEnv(%q) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", 5 * time.Second},
		{"24h", 24 * time.Hour},
		{"150ms", 150 * time.Millisecond},
		{"0s", 5 * time.Second},
		{"soon", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("HALLBOOK_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("HALLBOOK_TEST_DURATION", 5*time.Second); got != tt.expected {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestGetenvDefault(t *testing.T) {
	t.Setenv("HALLBOOK_TEST_STRING", "  ")
	if got := GetenvDefault("HALLBOOK_TEST_STRING", "fallback"); got != "fallback" {
		t.Errorf("blank value should fall back, got %q", got)
	}
	t.Setenv("HALLBOOK_TEST_STRING", "set")
	if got := GetenvDefault("HALLBOOK_TEST_STRING", "fallback"); got != "set" {
		t.Errorf("expected set value, got %q", got)
	}
}
