package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-1, 0, 10) != 0 || Clamp(11, 0, 10) != 10 || Clamp(5, 0, 10) != 5 {
		t.Fatalf("Clamp out of bounds")
	}
}

func TestParseDecimalPtr(t *testing.T) {
	if d, err := ParseDecimalPtr("  "); d != nil || err != nil {
		t.Fatalf("blank should be nil,nil; got %v,%v", d, err)
	}
	d, err := ParseDecimalPtr("12.50")
	if err != nil || d == nil || d.String() != "12.5" {
		t.Fatalf("unexpected %v,%v", d, err)
	}
	if _, err := ParseDecimalPtr("abc"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidDate(t *testing.T) {
	for s, want := range map[string]bool{
		"2024-02-29": true,
		"2023-02-29": false,
		"2024-1-01":  false,
		"":           false,
	} {
		if got := ValidDate(s); got != want {
			t.Errorf("ValidDate(%q)=%v; want %v", s, got, want)
		}
	}
	if !ValidDate(Today()) {
		t.Fatalf("Today must be a valid date")
	}
}
