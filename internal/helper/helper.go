package helper

import "math"

// Round2 rounds to cents for ledger reporting.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
