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

func TestParseID(t *testing.T) {
	good := map[string]uint{"1": 1, "42": 42, " 7 ": 7, "007": 7}
	for in, want := range good {
		got, err := ParseID(in)
		if err != nil || got != want {
			t.Fatalf("ParseID(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "0", "-1", "+1", "abc", "1.5", "99999999999"} {
		if _, err := ParseID(in); err != ErrInvalidID {
			t.Fatalf("ParseID(%q) err = %v; want ErrInvalidID", in, err)
		}
	}
}

func TestTotalPagesAndOffset(t *testing.T) {
	cases := []struct {
		total    int64
		size     int
		wantPage int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.size); got != tc.wantPage {
			t.Fatalf("TotalPages(%d, %d) = %d; want %d", tc.total, tc.size, got, tc.wantPage)
		}
	}
	if Offset(1, 20) != 0 || Offset(3, 20) != 40 || Offset(0, 20) != 0 || Offset(2, 0) != 0 {
		t.Fatal("Offset")
	}
}
