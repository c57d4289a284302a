package units

import "testing"

func TestFormatRate(t *testing.T) {
	tests := []struct {
		rate float64
		f    Format
		want string
	}{
		{1024, Kilobytes, "1.00 KB"},
		{1024, Kilobits, "8.00 Kbit"},
		{512, Bytes, "512.00 B"},
		{512, Bits, "4096.00 bit"},
		{3 * 1024 * 1024, Megabytes, "3.00 MB"},
		{1024 * 1024, Megabits, "8.00 Mbit"},
		{1.5 * 1024 * 1024 * 1024, Gigabytes, "1.50 GB"},
		{1024 * 1024 * 1024, Gigabits, "8.00 Gbit"},
		{2048, Format('x'), "2.00 KB"},
		{0, 0, "0.00 KB"},
	}
	for _, tt := range tests {
		if got := FormatRate(tt.rate, tt.f); got != tt.want {
			t.Fatalf("FormatRate(%v, %q) = %q, want %q", tt.rate, tt.f, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"B", "K", "M", "G", "b", "k", "m", "g", " m "} {
		if _, err := ParseFormat(s); err != nil {
			t.Fatalf("ParseFormat(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", "x", "KB", "mm"} {
		if _, err := ParseFormat(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestFormatter(t *testing.T) {
	fn := Kilobits.Formatter()
	if got := fn(1024); got != "8.00 Kbit" {
		t.Fatalf("unexpected formatter output %q", got)
	}
	if Kilobits.String() != "k" {
		t.Fatalf("unexpected String %q", Kilobits.String())
	}
}

func TestScale(t *testing.T) {
	factor, label := Megabytes.Scale()
	if label != "MB" || Value(2*1024*1024, Megabytes) != 2 || factor != 1.0/(1024*1024) {
		t.Fatalf("unexpected megabyte scale %v %q", factor, label)
	}
	if _, label := Format('?').Scale(); label != "KB" {
		t.Fatalf("expected kilobyte fallback, got %q", label)
	}
}
