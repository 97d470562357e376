package sanitizer

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Lab 2  ",
			want:  "Lab 2",
		},
		{
			name:  "multiple spaces between words",
			input: "Main    Hall",
			want:  "Main Hall",
		},
		{
			name:  "tabs and newlines",
			input: "Main\t\nHall",
			want:  "Main Hall",
		},
		{
			name:  "control characters removed",
			input: "Room\x00 A\x07",
			want:  "Room A",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve special characters",
			input: " Café & Spa™ ",
			want:  "Café & Spa™",
		},
		{
			name:  "hebrew characters",
			input: " חדר ישיבות ",
			want:  "חדר ישיבות",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "basic trim",
			input: "  hello  ",
			want:  "hello",
		},
		{
			name:  "multiple spaces",
			input: "hello    world",
			want:  "hello world",
		},
		{
			name:  "tabs and newlines",
			input: "hello\t\nworld",
			want:  "hello world",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimAndNormalize(tt.input)
			if got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeNameForComparison(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Main Hall", "main hall"},
		{"Main   HALL", "main hall"},
		{"  Café & Spa™ ", "café & spa™"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeNameForComparison(tt.input); got != tt.want {
			t.Errorf("NormalizeNameForComparison(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	in := "  Weekly\tteam\n\nsync\x00  "
	want := "Weekly team sync"
	if got := SanitizeText(in); got != want {
		t.Errorf("SanitizeText(%q) = %q, want %q", in, got, want)
	}
	if got := SanitizeText(SanitizeText(in)); got != want {
		t.Errorf("SanitizeText is not idempotent: %q", got)
	}
}

func TestSanitizeKeyword(t *testing.T) {
	if got := SanitizeKeyword("  Conference ROOM "); got != "conference room" {
		t.Errorf("SanitizeKeyword() = %q", got)
	}
}

func TestSanitizeID(t *testing.T) {
	if got := SanitizeID(" abc-123\n"); got != "abc-123" {
		t.Errorf("SanitizeID() = %q", got)
	}
}
