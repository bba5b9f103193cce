// Package idgen provides short, human-friendly registration reference codes
// backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every generated reference.
var DefaultPrefix = "BC-"

// Alphabet omits characters that are easy to misread in an email (0/O, 1/I/L).
var Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// Length is the number of random characters generated (excluding the prefix).
var Length = 8

// Reference returns a new reference code using the default prefix.
func Reference() (string, error) {
	return WithPrefix(DefaultPrefix)
}

// WithPrefix returns a new reference code with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
