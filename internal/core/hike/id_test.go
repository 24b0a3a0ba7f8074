package hike

import "testing"

func TestGenerateHikeID(t *testing.T) {
	tests := []struct {
		name       string
		currentMax int
		want       string
	}{
		{
			name:       "first hike (max=0)",
			currentMax: 0,
			want:       "HIKE-001",
		},
		{
			name:       "tenth hike (max=9)",
			currentMax: 9,
			want:       "HIKE-010",
		},
		{
			name:       "three-digit boundary (max=999)",
			currentMax: 999,
			want:       "HIKE-1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateHikeID(tt.currentMax)
			if got != tt.want {
				t.Errorf("GenerateHikeID(%d) = %q, want %q", tt.currentMax, got, tt.want)
			}
		})
	}
}

func TestParseHikeNumber(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want int
	}{
		{"valid", "HIKE-007", 7},
		{"large", "HIKE-1000", 1000},
		{"remote uuid", "0190b6a2-7f3c-7b1e-9d1a-3c4e5f6a7b8c", -1},
		{"empty", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseHikeNumber(tt.id); got != tt.want {
				t.Errorf("ParseHikeNumber(%q) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}

	if !IsLocalID("HIKE-001") || IsLocalID("abc") {
		t.Error("IsLocalID misclassified an id")
	}
}
