package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func GenerateNanoID(length int) string {
	id, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateNanoIDWithPrefix builds ids like "cycle_x7gh2..." used to correlate
// log lines and spans belonging to one unit of work.
func GenerateNanoIDWithPrefix(prefix string, length int) string {
	return fmt.Sprintf("%s_%s", prefix, GenerateNanoID(length))
}
