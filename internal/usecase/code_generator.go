package usecase

import (
	"crypto/rand"
	"io"
)

// Code strings are bearer credentials for a physical discount, so they are
// drawn from crypto/rand, never a general-purpose PRNG. The character set
// avoids visually ambiguous characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	// Base code lengths per issuing scope; each uniqueness-collision retry
	// lengthens the next attempt by one character.
	venueCodeLength  = 6
	issuerCodeLength = 8

	// maxGenerateAttempts bounds the uniqueness retry loop on insert.
	maxGenerateAttempts = 5
)

// generateCode produces a human-typeable code of baseLength+attempt
// characters. The 32-character alphabet divides 256 evenly, so the modulo
// mapping introduces no bias.
func generateCode(baseLength, attempt int) (string, error) {
	n := baseLength + attempt
	buffer := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < n; i++ {
		buffer[i] = codeAlphabet[int(buffer[i])%len(codeAlphabet)]
	}
	return string(buffer), nil
}
