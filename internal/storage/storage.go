package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
)

// KeyPrefix is the logical folder all profile pictures are stored under.
const KeyPrefix = "profile_pics"

// Service uploads profile pictures to remote object storage and returns the
// public URL of the stored object.
type Service interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// RandomKey derives a storage key from a client-supplied filename. The name is
// replaced with random hex so client names are never trusted and collisions are
// avoided; only the extension is preserved.
func RandomKey(filename string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random filename: %w", err)
	}
	ext := filepath.Ext(filename)
	return KeyPrefix + "/" + hex.EncodeToString(buf) + ext, nil
}
