package helper

import "testing"

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		1.005:  1.0, // binary 1.005 sits just under the half
		1.015:  1.01,
		-2.346: -2.35,
		0:      0,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Errorf("Round2(%v): want %v, got %v", in, want, got)
		}
	}
}
