package formatting_test

import (
	"testing"

	"github.com/JaimeStill/cohort/pkg/formatting"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"bare bytes", "1024", 1024, false},
		{"bytes unit", "512B", 512, false},
		{"kilobytes", "1KB", 1 << 10, false},
		{"megabytes", "4MB", 4 << 20, false},
		{"fractional", "1.5MB", 3 << 19, false},
		{"lowercase with space", "2 gb", 2 << 30, false},
		{"surrounding whitespace", "  8MB  ", 8 << 20, false},
		{"zero", "0", 0, false},
		{"empty", "", 0, true},
		{"no number", "MB", 0, true},
		{"negative", "-5MB", 0, true},
		{"unknown unit", "50XB", 0, true},
		{"two dots", "1.2.3MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 2, "0 B"},
		{1023, 1, "1023 B"},
		{1 << 10, 0, "1 KB"},
		{3 << 19, 1, "1.5 MB"},
		{5 << 30, 0, "5 GB"},
		{1 << 10, -3, "1 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}
