package ai

import "testing"

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[{"text":"q"}]`, `[{"text":"q"}]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  \n```json\n[]\n```  ", "[]"},
		{"fence mid-text", "here ```json[]``` done", "here [] done"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewUnconfigured(t *testing.T) {
	c := New("", "", "gpt-4o-mini")
	if c.Configured() {
		t.Fatal("client without API key must report unconfigured")
	}
	if _, err := c.Complete(t.Context(), "hello"); err != ErrNotConfigured {
		t.Fatalf("Complete on unconfigured client: got %v, want ErrNotConfigured", err)
	}
}
