package utils

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Spaces   everywhere  ", "spaces-everywhere"},
		{"Go 1.21 release notes", "go-1-21-release-notes"},
		{"already-a-slug", "already-a-slug"},
		{"Mixed_CASE and.dots", "mixed-case-and-dots"},
		{"你好世界", ""},
		{"--weird--input--", "weird-input"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
