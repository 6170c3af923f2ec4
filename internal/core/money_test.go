package core

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"   ", 0},
		{"abc", 0},
		{"2", 2},
		{"1,5", 1.5},
		{"1.5", 1.5},
		{" 2.25 ", 2.25},
		{"2 jam", 2},
		{"150000rp", 150000},
		{".5", 0.5},
		{"-3", -3},
		{"1e3", 1000},
		{"1e", 1},
		{"1,5,7", 1.5},
	}
	for _, c := range cases {
		if got := ParseNumber(c.in); got != c.want {
			t.Fatalf("ParseNumber(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRoundAmount(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{33333.33, 33333},
		{66666.5, 66667},
		{0.49, 0},
		{-0.5, 0},
	}
	for _, c := range cases {
		if got := RoundAmount(c.in); got != c.want {
			t.Fatalf("RoundAmount(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "Rp 0"},
		{999, "Rp 999"},
		{150000, "Rp 150.000"},
		{1234566.6, "Rp 1.234.567"},
	}
	for _, c := range cases {
		if got := FormatRupiah(c.in); got != c.want {
			t.Fatalf("FormatRupiah(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPerHourAndPercent(t *testing.T) {
	if got := PerHour(50000, 3); got != 16667 {
		t.Fatalf("PerHour = %v, want 16667", got)
	}
	if got := PerHour(50000, 0); got != 50000 {
		t.Fatalf("PerHour with zero hours = %v, want 50000", got)
	}
	if got := PercentOf(1.0 / 3); got != 33.3 {
		t.Fatalf("PercentOf(1/3) = %v, want 33.3", got)
	}
	if got := PercentOf(0.5); got != 50 {
		t.Fatalf("PercentOf(0.5) = %v, want 50", got)
	}
}
