package user

import (
	"github.com/jaevor/go-nanoid"
)

// IDLength is the length of generated user ids.
const IDLength = 22

var generateID = mustGenerator()

func mustGenerator() func() string {
	gen, err := nanoid.Standard(IDLength)
	if err != nil {
		panic(err)
	}
	return gen
}

// NewID returns a fresh URL-safe user id.
func NewID() string {
	return generateID()
}
