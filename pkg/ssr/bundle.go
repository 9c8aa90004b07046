package ssr

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// HashBundle returns the hex sha256 of a bundle's contents. Cache keys are
// derived from it so a rebuilt bundle never serves stale markup.
func HashBundle(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open bundle %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hash bundle %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
