package utils

import "testing"

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Sunset":                       "Sunset",
		"  Ari  ":                      "Ari",
		"<b>Bold</b> pillow":           "Bold pillow",
		"<script>alert(1)</script>Cat": "Cat",
		"Tom & Jerry":                  "Tom & Jerry",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q): want=%q got=%q", in, want, got)
		}
	}
}
