package domain

import "math/rand/v2"

// tripIDAlphabet matches the share codes users type in by hand: digits and
// upper-case letters only.
const tripIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// TripIDLength is the number of characters in a generated trip code.
const TripIDLength = 6

// NewTripID returns a short random share code such as "K3Z9QD".
// Codes are not checked for collisions against existing trips.
func NewTripID() string {
	b := make([]byte, TripIDLength)
	for i := range b {
		b[i] = tripIDAlphabet[rand.IntN(len(tripIDAlphabet))]
	}
	return string(b)
}
