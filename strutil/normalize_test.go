package strutil

import "testing"

func TestNormalizeUpper(t *testing.T) {
	cases := []struct{ in, want string }{
		{" k1abc ", "K1ABC"},
		{"KMRSU", "KMRSU"},
		{"\tiambic-b\n", "IAMBIC-B"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeUpper(tc.in); got != tc.want {
			t.Fatalf("NormalizeUpper(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeLower(t *testing.T) {
	cases := []struct{ in, want string }{
		{" ULTIMATIC ", "ultimatic"},
		{"Iambic_A", "iambic_a"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeLower(tc.in); got != tc.want {
			t.Fatalf("NormalizeLower(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
