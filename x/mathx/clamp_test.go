package mathx

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{42, 0, 10, 10},
		{5, 10, 0, 5}, // swapped bounds
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("Clamp(%d,%d,%d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestAtLeastOrDefault(t *testing.T) {
	if AtLeast(100, 250) != 250 || AtLeast(1000, 250) != 1000 {
		t.Fatal("AtLeast")
	}
	if OrDefault[uint16](0, 0x0B) != 0x0B || OrDefault[uint16](0x0C, 0x0B) != 0x0C {
		t.Fatal("OrDefault")
	}
}
