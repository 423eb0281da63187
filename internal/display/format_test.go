package display

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name string
		in   int64
		want string
	}{
		{"bytes", 512, "512 B"},
		{"kibibytes", 2048, "2.0 KiB"},
		{"mebibytes", 5 * 1024 * 1024, "5.0 MiB"},
		{"gibibytes", 3 * 1024 * 1024 * 1024, "3.0 GiB"},
		{"zero", 0, "0 B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytes(tt.in); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"sub-minute", 42.05, "42.0s"},
		{"minute boundary", 60, "1:00.0"},
		{"minutes", 125.25, "2:05.2"},
		{"negative clamped", -3, "0.0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSeconds(tt.in); got != tt.want {
				t.Errorf("FormatSeconds(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(1.05); got != "1.050x" {
		t.Errorf("FormatRate(1.05) = %q", got)
	}
}
