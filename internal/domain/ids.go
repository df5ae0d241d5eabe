package domain

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	externalIDAlphabet = "0123456789"
	externalIDLength   = 10
)

// NewExternalID returns a random 10-digit numeric identifier used in URLs
// in place of internal primary keys.
func NewExternalID() string {
	id, err := gonanoid.Generate(externalIDAlphabet, externalIDLength)
	if err != nil {
		// Generate only fails on an invalid alphabet or a broken entropy source.
		panic("external id: " + err.Error())
	}
	return id
}
