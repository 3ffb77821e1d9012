package stringutils

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"привет мир", 6, "привет..."},
		{"🐘🐘🐘", 1, "🐘..."},
		{"abc", 0, "..."},
		{"", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	got := Preview("line one\r\r\nline   two", 100)
	if got != "line one line two" {
		t.Errorf("Preview = %q", got)
	}
	if got := Preview("a b c d", 3); got != "a b..." {
		t.Errorf("Preview truncated = %q", got)
	}
}
