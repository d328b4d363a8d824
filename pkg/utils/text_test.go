package utils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate=%q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate=%q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("Truncate with 0 maxLen=%q", got)
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Slime  is\tstretchy", "slime is stretchy"},
		{"  SLIME IS STRETCHY  ", "slime is stretchy"},
		{"slime\nis stretchy", "slime is stretchy"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeText(c.in); got != c.want {
			t.Errorf("NormalizeText(%q)=%q, want %q", c.in, got, c.want)
		}
	}
}
