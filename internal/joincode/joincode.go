// Package joincode produces the short identifiers used for quiz codes and participant ids.
package joincode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	Length   = 6
)

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generate returns a random code of Length characters drawn from Alphabet.
func Generate() string {
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is unusable
			panic("joincode: read random: " + err.Error())
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf)
}

// Normalize trims and upper-cases user-typed input before lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the generated shape.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
