package filter

import "testing"

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		location string
		keyword  string
		want     bool
	}{
		{
			name:     "case insensitive city",
			location: "San Francisco, CA",
			keyword:  "san francisco",
			want:     true,
		},
		{
			name:     "no overlap",
			location: "Remote",
			keyword:  "Berlin",
			want:     false,
		},
		{
			name:     "upper keyword lower location",
			location: "remote",
			keyword:  "REMOTE",
			want:     true,
		},
		{
			name:     "substring inside word",
			location: "Berlin, Germany",
			keyword:  "germ",
			want:     true,
		},
		{
			name:     "surrounding whitespace is not trimmed",
			location: "Tokyo, Japan",
			keyword:  " tokyo",
			want:     false,
		},
		{
			name:     "no synonym matching",
			location: "New York, NY",
			keyword:  "NYC",
			want:     false,
		},
		{
			name:     "empty keyword matches everything",
			location: "Anywhere",
			keyword:  "",
			want:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.location, tt.keyword); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.location, tt.keyword, got, tt.want)
			}
		})
	}
}

func TestFirstMatch_ShortCircuits(t *testing.T) {
	kw, ok := FirstMatch("London, UK", []string{"Paris", "london", "UK"})
	if !ok {
		t.Fatal("expected a match")
	}
	if kw != "london" {
		t.Errorf("FirstMatch keyword = %q, want %q", kw, "london")
	}
}

func TestFirstMatch_NoKeywords(t *testing.T) {
	if _, ok := FirstMatch("Remote", nil); ok {
		t.Error("expected no match for empty keyword list")
	}
}
