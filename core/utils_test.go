package core

import "testing"

func Test_CleanString(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		lower bool
		want  string
	}{
		{name: "trims space", s: "  hello  ", want: "hello"},
		{name: "lowers", s: " Hello ", lower: true, want: "hello"},
		{name: "empty", s: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanString(tt.s, tt.lower); got != tt.want {
				t.Errorf("CleanString() = %q; want %q", got, tt.want)
			}
		})
	}
}

func Test_Round2(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{v: 66.666666, want: 66.67},
		{v: 33.333333, want: 33.33},
		{v: 0.005, want: 0.01},
		{v: 75, want: 75},
		{v: 0, want: 0},
		{v: -66.666666, want: -66.67},
	}
	for _, tt := range tests {
		if got := Round2(tt.v); got != tt.want {
			t.Errorf("Round2(%v) = %v; want %v", tt.v, got, tt.want)
		}
	}
}
