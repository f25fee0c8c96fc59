package ratelimit

import "golang.org/x/exp/constraints"

// requirePositive panics with a uniform message if v is not strictly
// positive. Every strategy constructor below validates its numeric
// parameters (rate, burst, window) through this single generic check
// rather than repeating a `<= 0` panic per field and per type, mirroring
// catrate/rates.go's use of golang.org/x/exp for generic, order-aware
// validation of limiter parameters.
func requirePositive[T constraints.Integer | constraints.Float](name string, v T) {
	if v <= 0 {
		panic("ratelimit: " + name + " must be positive")
	}
}
