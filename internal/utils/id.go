package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// ObjectKey builds a bucket key for an uploaded file. The random prefix keeps
// two uploads of the same filename from colliding, and spaces are replaced so
// the key survives URL handling untouched.
func ObjectKey(dir, filename string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	filename = strings.ReplaceAll(filename, " ", "_")
	return fmt.Sprintf("%s/%s_%s", dir, base64.RawURLEncoding.EncodeToString(b), filename), nil
}
